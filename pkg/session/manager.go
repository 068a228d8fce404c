package session

import (
	"net/http"
	"time"

	"github.com/trestleapp/trestle/pkg/cookie"
)

// Manager encodes sessions into a signed cookie and back.
type Manager struct {
	cookies *cookie.Manager
	cfg     Config
}

// New returns a Manager writing through the given cookie manager.
func New(cookies *cookie.Manager, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.ExpiresDays <= 0 {
		cfg.ExpiresDays = DefaultConfig().ExpiresDays
	}
	return &Manager{cookies: cookies, cfg: cfg}
}

func (m *Manager) maxAge() time.Duration {
	return time.Duration(m.cfg.ExpiresDays) * 24 * time.Hour
}

// Load decodes the request's session cookie. Missing, tampered, expired or
// malformed cookies degrade to an empty session, never an error.
func (m *Manager) Load(r *http.Request) *Session {
	payload, err := m.cookies.GetSigned(r, m.cfg.CookieName, m.maxAge())
	if err != nil {
		return NewSession()
	}
	return decode([]byte(payload))
}

// Save serializes s into a signed cookie on w. Must be called before the
// response status line is written.
func (m *Manager) Save(w http.ResponseWriter, s *Session) {
	m.cookies.SetSigned(w, m.cfg.CookieName, s.encode(),
		cookie.WithMaxAge(int(m.maxAge().Seconds())),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteStrictMode),
		cookie.WithSecure(!m.cfg.InsecureCookies),
	)
}
