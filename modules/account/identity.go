package account

import (
	"context"

	"github.com/trestleapp/trestle/pkg/cache"
)

const cacheKeyPrefix = "auth_"

// Identity resolves an auth cookie slug to its user, caching results
// in a bounded LRU so repeat requests skip the store. The cache is
// process-local; every mutation of a user or auth record must go
// through Invalidate or authorization decisions go stale.
//
// Users are cached and handed out by value: no two callers ever share
// an object, so one request mutating its user cannot be observed by
// another resolving the same slug.
type Identity struct {
	storage Storage
	cache   *cache.LRU[string, User]
}

func NewIdentity(storage Storage, capacity int) *Identity {
	return &Identity{
		storage: storage,
		cache:   cache.NewLRU[string, User](capacity),
	}
}

// Resolve returns the user owning the auth record behind slug, or nil
// when the record no longer exists (logged out elsewhere, revoked, or
// swept).
func (i *Identity) Resolve(ctx context.Context, slug string) (*User, error) {
	if user, ok := i.cache.Get(cacheKeyPrefix + slug); ok {
		return &user, nil
	}

	rec, err := i.storage.AuthBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	user, err := i.storage.UserByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Orphaned record; the foreign key makes this unreachable in
		// Postgres, but the in-memory store has no such constraint.
		return nil, nil
	}

	i.cache.Put(cacheKeyPrefix+slug, *user)
	return user, nil
}

// Invalidate drops the cached user for one auth slug.
func (i *Identity) Invalidate(slug string) {
	i.cache.Remove(cacheKeyPrefix + slug)
}

// Clear empties the cache.
func (i *Identity) Clear() {
	i.cache.Clear()
}
