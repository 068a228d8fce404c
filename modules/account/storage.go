package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists users and auth records. Point lookups return
// (nil, nil) when the row is absent; only infrastructure failures
// surface as errors. Timestamps are supplied by the caller so the
// service clock stays injectable.
type Storage interface {
	CreateUser(ctx context.Context, user *User) error
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error

	CreateAuth(ctx context.Context, rec *AuthRecord) error
	AuthBySlug(ctx context.Context, slug string) (*AuthRecord, error)
	AuthByUserAndAgent(ctx context.Context, userID uuid.UUID, userAgent string) (*AuthRecord, error)
	AuthsByUser(ctx context.Context, userID uuid.UUID) ([]AuthRecord, error)
	TouchAuth(ctx context.Context, id uuid.UUID, ip string, now time.Time) error
	DeleteAuth(ctx context.Context, id uuid.UUID) error
	DeleteAuthsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
