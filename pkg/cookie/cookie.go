package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

const minSecretLength = 32

// Manager signs and verifies cookie values. The first secret signs new
// cookies; every secret is tried during verification to support rotation.
type Manager struct {
	secrets  []string
	defaults Options
	now      func() time.Time
}

func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
	}

	defaults := applyOptions(Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}, opts)

	return &Manager{
		secrets:  secrets,
		defaults: defaults,
		now:      time.Now,
	}, nil
}

// WithClock replaces the manager's time source and returns the manager.
// Timestamps in signed values come from this clock; tests use it to mint
// backdated cookies.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) {
	options := applyOptions(m.defaults, opts)

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	})
}

func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return c.Value, nil
}

func (m *Manager) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     m.defaults.Path,
		Domain:   m.defaults.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.defaults.Secure,
		HttpOnly: m.defaults.HttpOnly,
		SameSite: m.defaults.SameSite,
	})
}

// SetSigned stores value with an issue timestamp and signature.
func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) {
	m.Set(w, name, m.sign(value, m.now()), opts...)
}

// GetSigned verifies the named cookie and returns its value. maxAge bounds
// how old the signed value may be; zero disables the age check (the cookie's
// own Max-Age then rules its lifetime client-side).
func (m *Manager) GetSigned(r *http.Request, name string, maxAge time.Duration) (string, error) {
	signed, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return m.verify(signed, maxAge)
}

// Signed wire format: base64url(value) | unix-seconds | base64url(signature),
// where the signature covers the raw value bytes and the timestamp.

func (m *Manager) sign(value string, issued time.Time) string {
	ts := strconv.FormatInt(issued.Unix(), 10)
	sig := computeSignature(m.secrets[0], []byte(value), ts)
	return base64.RawURLEncoding.EncodeToString([]byte(value)) + "|" + ts + "|" + base64.RawURLEncoding.EncodeToString(sig)
}

func (m *Manager) verify(signed string, maxAge time.Duration) (string, error) {
	parts := strings.SplitN(signed, "|", 3)
	if len(parts) != 3 {
		return "", ErrInvalidFormat
	}

	value, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidFormat
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidFormat
	}

	matched := false
	for _, secret := range m.secrets {
		expected := computeSignature(secret, value, parts[1])
		if subtle.ConstantTimeCompare(sig, expected) == 1 {
			matched = true
			break
		}
	}
	if !matched {
		return "", ErrInvalidSignature
	}

	// Age check only after the signature is trusted, otherwise a forged
	// timestamp could probe the clock.
	if maxAge > 0 {
		issued, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return "", ErrInvalidFormat
		}
		if m.now().Sub(time.Unix(issued, 0)) > maxAge {
			return "", ErrExpired
		}
	}

	return string(value), nil
}

func computeSignature(secret string, value []byte, ts string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(value)
	mac.Write([]byte("|"))
	mac.Write([]byte(ts))
	return mac.Sum(nil)
}
