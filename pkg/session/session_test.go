package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/pkg/cookie"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cookies, err := cookie.New([]string{"test-secret-at-least-32-characters-long"})
	require.NoError(t, err)
	return New(cookies, Config{CookieName: "session", ExpiresDays: 30, InsecureCookies: true})
}

func roundTrip(t *testing.T, m *Manager, s *Session) *Session {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Save(rec, s)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return m.Load(r)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	s := NewSession()
	s.Set("user", "some-slug")
	s.SetFlash("success", "Welcome back.")
	s.SetFormData(map[string]string{"email": "a@example.com"})
	s.SetErrors(map[string]bool{"password": true})

	got := roundTrip(t, m, s)

	v, ok := got.GetString("user")
	require.True(t, ok)
	assert.Equal(t, "some-slug", v)

	flash, ok := got.PopFlash()
	require.True(t, ok)
	assert.Equal(t, Flash{Level: "success", Message: "Welcome back."}, flash)

	assert.Equal(t, map[string]string{"email": "a@example.com"}, got.PopFormData())
	assert.Equal(t, map[string]bool{"password": true}, got.PopErrors())

	// Pops are one-shot.
	_, ok = got.PopFlash()
	assert.False(t, ok)
	assert.Empty(t, got.PopFormData())
}

func TestRoundTrip_UnchangedSessionIsClean(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	s := NewSession()
	s.Set("k", "v")

	got := roundTrip(t, m, s)
	assert.False(t, got.Changed(), "freshly decoded session must compare equal to its snapshot")

	got.Set("k", "other")
	assert.True(t, got.Changed())
}

func TestLoad_Degradations(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()
		s := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NotNil(t, s)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("tampered cookie", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		orig := NewSession()
		orig.Set("user", "victim")
		m.Save(rec, orig)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		c := rec.Result().Cookies()[0]
		c.Value = "x" + c.Value
		r.AddCookie(c)

		s := m.Load(r)
		assert.Equal(t, 0, s.Len(), "tampered cookie must decode to an empty session")
	})

	t.Run("garbage cookie", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "session", Value: "definitely not signed"})
		assert.Equal(t, 0, m.Load(r).Len())
	})

	t.Run("expired cookie", func(t *testing.T) {
		t.Parallel()

		// Mint the cookie with a clock two days in the past, then load it
		// with a manager that only accepts one day of age.
		backdated, err := cookie.New([]string{"test-secret-at-least-32-characters-long"})
		require.NoError(t, err)
		backdated.WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) })

		orig := NewSession()
		orig.Set("user", "slug")

		rec := httptest.NewRecorder()
		New(backdated, Config{CookieName: "session", ExpiresDays: 1, InsecureCookies: true}).Save(rec, orig)

		current, err := cookie.New([]string{"test-secret-at-least-32-characters-long"})
		require.NoError(t, err)
		short := New(current, Config{CookieName: "session", ExpiresDays: 1, InsecureCookies: true})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range rec.Result().Cookies() {
			r.AddCookie(c)
		}
		assert.Equal(t, 0, short.Load(r).Len(), "expired payload must decode to an empty session")
	})
}

func TestSessionHelpers(t *testing.T) {
	t.Parallel()

	s := NewSession()
	assert.False(t, s.Changed())

	s.Set("a", "1")
	assert.True(t, s.Changed())

	s.Delete("a")
	assert.False(t, s.Changed())

	s.Set("a", "1")
	s.Clear()
	assert.Equal(t, 0, s.Len())
}
