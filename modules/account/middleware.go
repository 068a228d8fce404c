package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/trestleapp/trestle/pkg/cookie"
	"github.com/trestleapp/trestle/pkg/session"
)

type principalCtxKey struct{}

// Principal is the resolved identity of the current request.
type Principal struct {
	User *User
	// AuthSlug is the slug from the auth cookie, kept for logout and
	// for marking the current device in listings.
	AuthSlug string
}

// PrincipalFromContext returns the request's principal, or nil when
// the request is anonymous.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*Principal)
	return p
}

// Middleware bundles the request decorators around the account
// service. Construct once and reuse across routes.
type Middleware struct {
	service  *Service
	cookies  *cookie.Manager
	renderer Renderer
	cfg      Config
	log      *slog.Logger
}

func NewMiddleware(service *Service, cookies *cookie.Manager, renderer Renderer, cfg Config, log *slog.Logger) *Middleware {
	if log == nil {
		log = slog.Default()
	}
	return &Middleware{service: service, cookies: cookies, renderer: renderer, cfg: cfg, log: log}
}

func (m *Middleware) authCookieMaxAge() time.Duration {
	return time.Duration(m.cfg.AuthExpiresDays) * 24 * time.Hour
}

// CurrentUser resolves the auth cookie into a Principal. A cookie
// pointing at a deleted auth record means the user was logged out
// elsewhere: the cookie is cleared and a flash explains what happened.
// Resolution failures degrade to an anonymous request, never an error.
func (m *Middleware) CurrentUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug, err := m.cookies.GetSigned(r, m.cfg.AuthCookieName, m.authCookieMaxAge())
		if err != nil || slug == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.service.Identity().Resolve(r.Context(), slug)
		if err != nil {
			m.log.ErrorContext(r.Context(), "failed to resolve current user", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}
		if user == nil {
			if sess := session.FromContext(r.Context()); sess != nil {
				sess.SetFlash("info", "You have been logged out.")
			}
			m.cookies.Delete(w, m.cfg.AuthCookieName)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), principalCtxKey{}, &Principal{User: user, AuthSlug: slug})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser redirects anonymous requests to the login page.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/account/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithoutUser sends already-authenticated users to their landing page.
// Used on signup, login and password reset routes.
func (m *Middleware) WithoutUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) != nil {
			http.Redirect(w, r, "/home", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin renders a forbidden page unless the current user has
// the admin flag.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil || !p.User.IsAdmin {
			m.renderError(w, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RemoveSlash permanently redirects any path with a trailing slash to
// its canonical form.
func RemoveSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			target := strings.TrimRight(r.URL.Path, "/")
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ValidateReferer rejects mutating requests whose Referer header is
// missing or points at a different host.
func (m *Middleware) ValidateReferer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			ref, err := url.Parse(r.Referer())
			if err != nil || ref.Host == "" || ref.Host != r.Host {
				m.renderError(w, http.StatusBadRequest)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Recoverer turns a handler panic into a rendered error page, logs the
// stack, and queues an alert email to the support address.
func (m *Middleware) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			message := fmt.Sprintf("panic: %v\n\n%s", rec, debug.Stack())
			m.log.ErrorContext(r.Context(), "panic while handling request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("panic", rec))

			var userEmail string
			if p := PrincipalFromContext(r.Context()); p != nil {
				userEmail = p.User.Email
			}
			m.service.deferEmail(errorAlertEmail(m.cfg.SupportEmail, message, r.Method, r.URL.String(), userEmail))

			m.renderError(w, http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) renderError(w http.ResponseWriter, status int) {
	if m.renderer != nil {
		if err := m.renderer.Render(w, status, "error", map[string]any{"status": status}); err == nil {
			return
		}
	}
	http.Error(w, http.StatusText(status), status)
}
