package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("pg.errors.failed_to_open_db_connection")
	ErrFailedToParseDBConfig    = errors.New("pg.errors.failed_to_parse_db_config")
	ErrHealthcheckFailed        = errors.New("pg.errors.healthcheck_failed")
	ErrFailedToApplyMigrations  = errors.New("pg.errors.failed_to_apply_migrations")
)

// IsNotFoundError detects pgx.ErrNoRows for consistent "not found"
// handling across stores.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects unique constraint violations (SQLSTATE
// 23505), which back the email uniqueness check at signup.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolationError detects referential integrity violations
// (SQLSTATE 23503).
func IsForeignKeyViolationError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
