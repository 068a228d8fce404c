package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/modules/account"
)

func newUser(email string, now time.Time) *account.User {
	return &account.User{
		ID:             uuid.New(),
		Email:          email,
		PasswordSalt:   "salt",
		HashedPassword: "digest",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newAuth(userID uuid.UUID, agent string, now time.Time) *account.AuthRecord {
	return &account.AuthRecord{
		ID:        uuid.New(),
		UserID:    userID,
		UserAgent: agent,
		IP:        "203.0.113.7",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStorage_Users(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := account.NewMemoryStorage()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	user := newUser("ada@example.com", now)
	require.NoError(t, store.CreateUser(ctx, user))
	assert.ErrorIs(t, store.CreateUser(ctx, newUser("ADA@example.com", now)), account.ErrEmailTaken)

	got, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	// Lookups return copies; mutating the result must not leak back.
	got.Email = "mutated@example.com"
	again, err := store.UserByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", again.Email)

	missing, err := store.UserByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	user.Email = "new@example.com"
	require.NoError(t, store.UpdateUser(ctx, user))
	updated, err := store.UserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, updated)

	other := newUser("grace@example.com", now)
	require.NoError(t, store.CreateUser(ctx, other))
	other.Email = "NEW@example.com"
	assert.ErrorIs(t, store.UpdateUser(ctx, other), account.ErrEmailTaken)

	ghost := newUser("ghost@example.com", now)
	assert.ErrorIs(t, store.UpdateUser(ctx, ghost), account.ErrNotFound)
}

func TestMemoryStorage_Auths(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := account.NewMemoryStorage()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	user := newUser("ada@example.com", now)
	require.NoError(t, store.CreateUser(ctx, user))

	rec := newAuth(user.ID, "agent-a", now)
	require.NoError(t, store.CreateAuth(ctx, rec))

	got, err := store.AuthBySlug(ctx, rec.Slug())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)

	// A malformed slug is absence, not an error.
	got, err = store.AuthBySlug(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, got)

	byAgent, err := store.AuthByUserAndAgent(ctx, user.ID, "agent-a")
	require.NoError(t, err)
	require.NotNil(t, byAgent)
	byAgent, err = store.AuthByUserAndAgent(ctx, user.ID, "agent-b")
	require.NoError(t, err)
	assert.Nil(t, byAgent)

	later := now.Add(time.Hour)
	require.NoError(t, store.TouchAuth(ctx, rec.ID, "198.51.100.9", later))
	touched, err := store.AuthBySlug(ctx, rec.Slug())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.9", touched.IP)
	assert.Equal(t, later, touched.UpdatedAt)

	assert.ErrorIs(t, store.TouchAuth(ctx, uuid.New(), "1.2.3.4", later), account.ErrNotFound)

	require.NoError(t, store.DeleteAuth(ctx, rec.ID))
	gone, err := store.AuthBySlug(ctx, rec.Slug())
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemoryStorage_AuthsByUserOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := account.NewMemoryStorage()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	user := newUser("ada@example.com", now)
	require.NoError(t, store.CreateUser(ctx, user))

	oldest := newAuth(user.ID, "agent-a", now.Add(-48*time.Hour))
	middle := newAuth(user.ID, "agent-b", now.Add(-time.Hour))
	newest := newAuth(user.ID, "agent-c", now)
	for _, rec := range []*account.AuthRecord{middle, newest, oldest} {
		require.NoError(t, store.CreateAuth(ctx, rec))
	}

	recs, err := store.AuthsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, newest.ID, recs[0].ID, "most recently seen comes first")
	assert.Equal(t, middle.ID, recs[1].ID)
	assert.Equal(t, oldest.ID, recs[2].ID)
}

func TestMemoryStorage_DeleteAuthsOlderThan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := account.NewMemoryStorage()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	user := newUser("ada@example.com", now)
	require.NoError(t, store.CreateUser(ctx, user))

	stale := newAuth(user.ID, "agent-a", now.Add(-31*24*time.Hour))
	fresh := newAuth(user.ID, "agent-b", now.Add(-time.Hour))
	require.NoError(t, store.CreateAuth(ctx, stale))
	require.NoError(t, store.CreateAuth(ctx, fresh))

	count, err := store.DeleteAuthsOlderThan(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	gone, err := store.AuthBySlug(ctx, stale.Slug())
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.AuthBySlug(ctx, fresh.Slug())
	require.NoError(t, err)
	assert.NotNil(t, kept)

	// A record exactly at the cutoff survives.
	boundary := newAuth(user.ID, "agent-c", now.Add(-30*24*time.Hour))
	require.NoError(t, store.CreateAuth(ctx, boundary))
	count, err = store.DeleteAuthsOlderThan(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}
