package account

import "errors"

var (
	// ErrMatch covers both an unknown email and a wrong password so the
	// two cases cannot be told apart by a caller probing for accounts.
	ErrMatch = errors.New("account.errors.match")

	// ErrInvalidClient is returned for login attempts missing a user
	// agent or a client IP.
	ErrInvalidClient = errors.New("account.errors.invalid_client")

	ErrEmailTaken   = errors.New("account.errors.email_taken")
	ErrNotFound     = errors.New("account.errors.not_found")
	ErrForbidden    = errors.New("account.errors.forbidden")
	ErrResetExpired = errors.New("account.errors.reset_expired")
)
