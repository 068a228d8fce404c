package account

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trestleapp/trestle/pkg/cron"
	"github.com/trestleapp/trestle/pkg/password"
	"github.com/trestleapp/trestle/pkg/queue"
	"github.com/trestleapp/trestle/pkg/useragent"
)

// Client carries the request attributes a login is bound to.
type Client struct {
	UserAgent string
	IP        string
}

// Service holds the account domain rules. It is constructed once and
// shared across requests; all state lives in the storage backend and
// the identity cache.
type Service struct {
	storage  Storage
	identity *Identity
	queue    *queue.Queue
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the service clock, letting tests pin time.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(storage Storage, identity *Identity, q *queue.Queue, cfg Config, opts ...ServiceOption) *Service {
	s := &Service{
		storage:  storage,
		identity: identity,
		queue:    q,
		cfg:      cfg,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity exposes the resolver for the current-user middleware.
func (s *Service) Identity() *Identity { return s.identity }

func (s *Service) verify(user *User, pw string) bool {
	digest := password.Hash(pw, user.PasswordSalt)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(user.HashedPassword)) == 1
}

func hashToken(token string) string {
	return password.Hash(token, "")
}

// Signup registers a new user. The email must not already be in use,
// compared case-insensitively.
func (s *Service) Signup(ctx context.Context, email, pw string) (*User, error) {
	existing, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	salt, digest := password.Change(pw)
	now := s.now()
	user := &User{
		ID:             uuid.New(),
		Email:          email,
		PasswordSalt:   salt,
		HashedPassword: digest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and binds the client to an auth record.
// Unknown email and wrong password return the same error so the two
// cannot be told apart.
func (s *Service) Login(ctx context.Context, email, pw string, client Client) (*User, *AuthRecord, error) {
	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !s.verify(user, pw) {
		return nil, nil, ErrMatch
	}

	rec, err := s.StartSession(ctx, user, client)
	if err != nil {
		return nil, nil, err
	}
	return user, rec, nil
}

// StartSession creates or refreshes the auth record for the client.
// There is at most one record per (user, user agent): a repeat login
// from a known agent updates its IP and timestamp instead of inserting.
func (s *Service) StartSession(ctx context.Context, user *User, client Client) (*AuthRecord, error) {
	if client.UserAgent == "" || client.IP == "" {
		return nil, ErrInvalidClient
	}

	rec, err := s.storage.AuthByUserAndAgent(ctx, user.ID, client.UserAgent)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if rec != nil {
		// Touch even when the IP is unchanged: updated_at is what the
		// sweeper's retention window is measured against.
		if err := s.storage.TouchAuth(ctx, rec.ID, client.IP, now); err != nil {
			return nil, err
		}
		rec.IP = client.IP
		rec.UpdatedAt = now
		return rec, nil
	}

	ua := useragent.Parse(client.UserAgent)
	rec = &AuthRecord{
		ID:        uuid.New(),
		UserID:    user.ID,
		UserAgent: client.UserAgent,
		OS:        ua.OS(),
		Browser:   ua.Browser(),
		Device:    ua.DeviceType(),
		IP:        client.IP,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.CreateAuth(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Logout deletes the auth record behind slug. A slug that no longer
// resolves is a no-op, not an error.
func (s *Service) Logout(ctx context.Context, slug string) error {
	rec, err := s.storage.AuthBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if err := s.storage.DeleteAuth(ctx, rec.ID); err != nil {
		return err
	}
	s.identity.Invalidate(slug)
	return nil
}

// ChangeEmail sets a new address after re-checking the password.
func (s *Service) ChangeEmail(ctx context.Context, user *User, pw, newEmail string) error {
	if !s.verify(user, pw) {
		return ErrMatch
	}

	existing, err := s.storage.UserByEmail(ctx, newEmail)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != user.ID {
		return ErrEmailTaken
	}

	// Persist a copy so a failed update leaves the caller's user intact.
	updated := *user
	updated.Email = newEmail
	updated.UpdatedAt = s.now()
	if err := s.storage.UpdateUser(ctx, &updated); err != nil {
		return err
	}
	*user = updated
	return s.invalidateUserAuths(ctx, user.ID)
}

// ChangePassword rotates the salt and digest after re-checking the
// current password.
func (s *Service) ChangePassword(ctx context.Context, user *User, current, newPW string) error {
	if !s.verify(user, current) {
		return ErrMatch
	}

	salt, digest := password.Change(newPW)
	updated := *user
	updated.PasswordSalt = salt
	updated.HashedPassword = digest
	updated.UpdatedAt = s.now()
	if err := s.storage.UpdateUser(ctx, &updated); err != nil {
		return err
	}
	*user = updated
	return s.invalidateUserAuths(ctx, user.ID)
}

// ForgotPassword issues a one-hour reset token and queues the reset
// email. An unknown address is silently ignored so the endpoint cannot
// be used to probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token := password.GenerateToken(16)
	user.HashedToken = hashToken(token)
	user.TokenIssuedAt = s.now()
	user.UpdatedAt = user.TokenIssuedAt
	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return err
	}
	if err := s.invalidateUserAuths(ctx, user.ID); err != nil {
		return err
	}

	s.deferEmail(resetEmail(s.cfg.BaseURL, user, token))
	return nil
}

// VerifyResetToken resolves a reset link. The token is valid for a
// single use within ResetTokenTTL of issuance; everything else reports
// expiry, including a token that was already consumed.
func (s *Service) VerifyResetToken(ctx context.Context, key, token string) (*User, error) {
	id, err := uuid.Parse(key)
	if err != nil {
		return nil, ErrResetExpired
	}
	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || user.HashedToken == "" || user.TokenIssuedAt.IsZero() {
		return nil, ErrResetExpired
	}
	if subtle.ConstantTimeCompare([]byte(hashToken(token)), []byte(user.HashedToken)) != 1 {
		return nil, ErrResetExpired
	}
	if s.now().Sub(user.TokenIssuedAt) >= s.cfg.ResetTokenTTL {
		return nil, ErrResetExpired
	}
	return user, nil
}

// ResetPassword consumes a valid token and installs the new password.
func (s *Service) ResetPassword(ctx context.Context, key, token, newPW string) (*User, error) {
	user, err := s.VerifyResetToken(ctx, key, token)
	if err != nil {
		return nil, err
	}

	salt, digest := password.Change(newPW)
	user.PasswordSalt = salt
	user.HashedPassword = digest
	user.HashedToken = ""
	user.TokenIssuedAt = time.Time{}
	user.UpdatedAt = s.now()
	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	if err := s.invalidateUserAuths(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// Devices lists the user's auth records, most recently seen first.
func (s *Service) Devices(ctx context.Context, userID uuid.UUID) ([]AuthRecord, error) {
	return s.storage.AuthsByUser(ctx, userID)
}

// Revoke deletes one of the user's own auth records. Revoking a record
// owned by someone else is forbidden and leaves the record in place.
func (s *Service) Revoke(ctx context.Context, user *User, slug string) error {
	rec, err := s.storage.AuthBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.UserID != user.ID {
		return ErrForbidden
	}
	if err := s.storage.DeleteAuth(ctx, rec.ID); err != nil {
		return err
	}
	s.identity.Invalidate(slug)
	return nil
}

// Sweep deletes auth records untouched for longer than the retention
// window and reports how many went.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	count, err := s.storage.DeleteAuthsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep auth records: %w", err)
	}
	s.log.InfoContext(ctx, "swept expired auth records", slog.Int64("removed", count))
	return count, nil
}

// SweepJob adapts Sweep for the cron runner.
func (s *Service) SweepJob() cron.JobFunc {
	return func(ctx context.Context) error {
		_, err := s.Sweep(ctx)
		return err
	}
}

func (s *Service) invalidateUserAuths(ctx context.Context, userID uuid.UUID) error {
	recs, err := s.storage.AuthsByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		s.identity.Invalidate(rec.Slug())
	}
	return nil
}
