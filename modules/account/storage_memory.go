package account

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is a mutex-guarded in-memory Storage used in tests and
// local development. Values are copied on the way in and out so callers
// never share memory with the store.
type MemoryStorage struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
	auths map[uuid.UUID]AuthRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[uuid.UUID]User),
		auths: make(map[uuid.UUID]AuthRecord),
	}
}

func (s *MemoryStorage) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStorage) UserByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryStorage) UserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) UpdateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, u := range s.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStorage) CreateAuth(_ context.Context, rec *AuthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auths[rec.ID] = *rec
	return nil
}

func (s *MemoryStorage) AuthBySlug(_ context.Context, slug string) (*AuthRecord, error) {
	id, err := uuid.Parse(slug)
	if err != nil {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.auths[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStorage) AuthByUserAndAgent(_ context.Context, userID uuid.UUID, userAgent string) (*AuthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.auths {
		if rec.UserID == userID && rec.UserAgent == userAgent {
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) AuthsByUser(_ context.Context, userID uuid.UUID) ([]AuthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AuthRecord
	for _, rec := range s.auths {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	// Most recently seen first, same ordering as the Postgres backend.
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *MemoryStorage) TouchAuth(_ context.Context, id uuid.UUID, ip string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.auths[id]
	if !ok {
		return ErrNotFound
	}
	rec.IP = ip
	rec.UpdatedAt = now
	s.auths[id] = rec
	return nil
}

func (s *MemoryStorage) DeleteAuth(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.auths, id)
	return nil
}

func (s *MemoryStorage) DeleteAuthsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, rec := range s.auths {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.auths, id)
			count++
		}
	}
	return count, nil
}
