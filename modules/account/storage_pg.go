package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trestleapp/trestle/pkg/pg"
)

// PgStorage is the Postgres Storage backend on top of pgxpool. Each
// call acquires a connection from the pool for its own duration only.
type PgStorage struct {
	pool *pgxpool.Pool
}

func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

const userColumns = `id, email, password_salt, hashed_password,
	coalesce(hashed_token, ''), coalesce(token_issued_at, 'epoch'::timestamptz),
	is_admin, is_dev, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordSalt, &u.HashedPassword,
		&u.HashedToken, &u.TokenIssuedAt, &u.IsAdmin, &u.IsDev, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if u.TokenIssuedAt.Unix() == 0 {
		u.TokenIssuedAt = time.Time{}
	}
	return &u, nil
}

func (s *PgStorage) CreateUser(ctx context.Context, user *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_salt, hashed_password, is_admin, is_dev, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordSalt, user.HashedPassword,
		user.IsAdmin, user.IsDev, user.CreatedAt, user.UpdatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PgStorage) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PgStorage) UserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *PgStorage) UpdateUser(ctx context.Context, user *User) error {
	var issuedAt *time.Time
	if !user.TokenIssuedAt.IsZero() {
		issuedAt = &user.TokenIssuedAt
	}
	var hashedToken *string
	if user.HashedToken != "" {
		hashedToken = &user.HashedToken
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, password_salt = $3, hashed_password = $4,
			hashed_token = $5, token_issued_at = $6,
			is_admin = $7, is_dev = $8, updated_at = $9
		WHERE id = $1`,
		user.ID, user.Email, user.PasswordSalt, user.HashedPassword,
		hashedToken, issuedAt, user.IsAdmin, user.IsDev, user.UpdatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStorage) CreateAuth(ctx context.Context, rec *AuthRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_records (id, user_id, user_agent, os, browser, device, ip, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.UserID, rec.UserAgent, rec.OS, rec.Browser, rec.Device,
		rec.IP, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create auth record: %w", err)
	}
	return nil
}

const authColumns = `id, user_id, user_agent, coalesce(os, ''), coalesce(browser, ''),
	coalesce(device, ''), ip, created_at, updated_at`

func scanAuth(row pgx.Row) (*AuthRecord, error) {
	var rec AuthRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.UserAgent, &rec.OS, &rec.Browser,
		&rec.Device, &rec.IP, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan auth record: %w", err)
	}
	return &rec, nil
}

func (s *PgStorage) AuthBySlug(ctx context.Context, slug string) (*AuthRecord, error) {
	id, err := uuid.Parse(slug)
	if err != nil {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, `SELECT `+authColumns+` FROM auth_records WHERE id = $1`, id)
	return scanAuth(row)
}

func (s *PgStorage) AuthByUserAndAgent(ctx context.Context, userID uuid.UUID, userAgent string) (*AuthRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+authColumns+` FROM auth_records
		WHERE user_id = $1 AND user_agent = $2`, userID, userAgent)
	return scanAuth(row)
}

func (s *PgStorage) AuthsByUser(ctx context.Context, userID uuid.UUID) ([]AuthRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+authColumns+` FROM auth_records
		WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list auth records: %w", err)
	}
	defer rows.Close()

	var out []AuthRecord
	for rows.Next() {
		rec, err := scanAuth(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list auth records: %w", err)
	}
	return out, nil
}

func (s *PgStorage) TouchAuth(ctx context.Context, id uuid.UUID, ip string, now time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE auth_records SET ip = $2, updated_at = $3 WHERE id = $1`, id, ip, now)
	if err != nil {
		return fmt.Errorf("touch auth record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStorage) DeleteAuth(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM auth_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete auth record: %w", err)
	}
	return nil
}

func (s *PgStorage) DeleteAuthsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM auth_records WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep auth records: %w", err)
	}
	return tag.RowsAffected(), nil
}
