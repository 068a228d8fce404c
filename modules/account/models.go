package account

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Email comparison is case-insensitive
// even though RFC 5321 says otherwise, because users consistently
// expect it to be.
type User struct {
	ID             uuid.UUID
	Email          string
	PasswordSalt   string
	HashedPassword string

	// HashedToken and TokenIssuedAt track a pending password reset.
	// Both are zero when no reset is outstanding; the token is cleared
	// on first use.
	HashedToken   string
	TokenIssuedAt time.Time

	IsAdmin bool
	IsDev   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slug is the opaque identity used in cookies and URLs.
func (u User) Slug() string { return u.ID.String() }

// AuthRecord is one logged-in device or browser. There is at most one
// record per (user, user agent) pair; a repeat login from a known
// agent updates the existing record instead of inserting a new one.
type AuthRecord struct {
	ID     uuid.UUID
	UserID uuid.UUID

	UserAgent string
	OS        string
	Browser   string
	Device    string
	IP        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slug is the opaque identity carried in the auth cookie.
func (a AuthRecord) Slug() string { return a.ID.String() }
