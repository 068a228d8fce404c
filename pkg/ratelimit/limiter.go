package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidLimit  = errors.New("ratelimit.errors.invalid_limit")
	ErrInvalidWindow = errors.New("ratelimit.errors.invalid_window")
	ErrStoreFailure  = errors.New("ratelimit.errors.store_failure")
)

// Result reports the outcome of one rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long to wait before the next attempt may be
// allowed, or 0 when the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store is the counter backend. IncrementAndGet atomically bumps the
// counter for key, starting a fresh window with the given duration when
// the key is new, and returns the count together with the remaining
// window time.
type Store interface {
	IncrementAndGet(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

// FixedWindow allows at most limit requests per key in each window.
type FixedWindow struct {
	store  Store
	limit  int
	window time.Duration
	prefix string
}

// NewFixedWindow creates a limiter. The prefix keeps different concerns
// (login, password reset) from sharing counters in one store.
func NewFixedWindow(store Store, prefix string, limit int, window time.Duration) (*FixedWindow, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &FixedWindow{
		store:  store,
		limit:  limit,
		window: window,
		prefix: prefix,
	}, nil
}

// Allow consumes one attempt for key and reports whether it fit inside
// the current window.
func (l *FixedWindow) Allow(ctx context.Context, key string) (*Result, error) {
	count, ttl, err := l.store.IncrementAndGet(ctx, l.prefix+":"+key, l.window)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// Reset clears the counter for key. Called after a successful login so
// a legitimate user is not locked out by their own typos.
func (l *FixedWindow) Reset(ctx context.Context, key string) error {
	if err := l.store.Reset(ctx, l.prefix+":"+key); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}
