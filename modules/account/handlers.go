package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/trestleapp/trestle/pkg/clientip"
	"github.com/trestleapp/trestle/pkg/cookie"
	"github.com/trestleapp/trestle/pkg/ratelimit"
	"github.com/trestleapp/trestle/pkg/session"
)

// Renderer renders a named template to the response. The template
// layer is a collaborator; this package never touches markup beyond
// handing over a data map.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data map[string]any) error
}

// Handlers adapts the account service to HTTP. Mount the result of
// Handle under /account.
type Handlers struct {
	service  *Service
	mw       *Middleware
	cookies  *cookie.Manager
	renderer Renderer
	limiter  *ratelimit.FixedWindow
	cfg      Config
	log      *slog.Logger
}

type HandlersOption func(*Handlers)

// WithLoginLimiter rate-limits login and forgot-password posts by
// client IP.
func WithLoginLimiter(limiter *ratelimit.FixedWindow) HandlersOption {
	return func(h *Handlers) { h.limiter = limiter }
}

func NewHandlers(service *Service, mw *Middleware, cookies *cookie.Manager, renderer Renderer, cfg Config, log *slog.Logger, opts ...HandlersOption) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	h := &Handlers{
		service:  service,
		mw:       mw,
		cookies:  cookies,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle returns the account routes. Current-user resolution, session
// handling and panic recovery are expected to wrap the mount point.
func (h *Handlers) Handle() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.mw.WithoutUser)
		r.Get("/signup", h.signupPage)
		r.Post("/signup", h.signup)
		r.Get("/login", h.loginPage)
		r.Post("/login", h.login)
		r.Get("/forgotpassword", h.forgotPasswordPage)
		r.Post("/forgotpassword", h.forgotPassword)
		r.Get("/resetpassword", h.resetPasswordPage)
		r.Post("/resetpassword", h.resetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireUser)
		r.Get("/", h.index)
		r.Get("/email", h.emailPage)
		r.Post("/email", h.changeEmail)
		r.Get("/password", h.passwordPage)
		r.Post("/password", h.changePassword)
		r.Get("/auths", h.listAuths)
		r.Post("/auths", h.revokeAuth)
		r.With(h.mw.ValidateReferer).Post("/logout", h.logout)
	})

	return r
}

func clientFromRequest(r *http.Request) Client {
	ip := clientip.GetIPFromContext(r.Context())
	if ip == "" {
		ip = clientip.GetIP(r)
	}
	return Client{UserAgent: r.UserAgent(), IP: ip}
}

// render merges flash, redisplay form data and field errors from the
// session into the template data before delegating to the renderer.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	// Templates always see these keys so nested lookups never trip on
	// a missing map.
	data["form_data"] = map[string]string{}
	data["errors"] = map[string]bool{}
	if sess := session.FromContext(r.Context()); sess != nil {
		if flash, ok := sess.PopFlash(); ok {
			data["flash"] = flash
		}
		if form := sess.PopFormData(); len(form) > 0 {
			data["form_data"] = form
		}
		if errs := sess.PopErrors(); len(errs) > 0 {
			data["errors"] = errs
		}
	}
	if p := PrincipalFromContext(r.Context()); p != nil {
		data["user"] = p.User
		data["is_admin"] = p.User.IsAdmin
		data["is_dev"] = p.User.IsDev
	}

	if err := h.renderer.Render(w, http.StatusOK, name, data); err != nil {
		h.log.ErrorContext(r.Context(), "failed to render template",
			slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// redisplay stashes the submitted values and errors in the session and
// redirects, by default back to the current path, so the form can be
// shown again with its state intact.
func (h *Handlers) redisplay(w http.ResponseWriter, r *http.Request, form map[string]string, errs Errors, target string) {
	if sess := session.FromContext(r.Context()); sess != nil {
		if len(form) > 0 {
			sess.SetFormData(form)
		}
		if len(errs) > 0 {
			sess.SetErrors(errs)
		}
	}
	if target == "" {
		target = r.URL.Path
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handlers) flash(r *http.Request, level, message string) {
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.SetFlash(level, message)
	}
}

func (h *Handlers) renderError(w http.ResponseWriter, status int) {
	if h.renderer != nil {
		if err := h.renderer.Render(w, status, "error", map[string]any{"status": status}); err == nil {
			return
		}
	}
	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// setAuthCookie signs the record slug into the auth cookie. Remembered
// logins persist for the configured number of days; otherwise the
// cookie lives only for the browser session.
func (h *Handlers) setAuthCookie(w http.ResponseWriter, rec *AuthRecord, remember bool) {
	var opts []cookie.Option
	if remember {
		opts = append(opts, cookie.WithMaxAge(h.cfg.AuthExpiresDays*24*60*60))
	}
	h.cookies.SetSigned(w, h.cfg.AuthCookieName, rec.Slug(), opts...)
}

func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "account/index", nil)
}

func (h *Handlers) signupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "account/signup", nil)
}

func (h *Handlers) signup(w http.ResponseWriter, r *http.Request) {
	form, errs, valid := Validate(r, RequiredEmail("email"), RequiredPassword("password"))

	if errs.Valid() {
		user, err := h.service.Signup(r.Context(), valid["email"], valid["password"])
		switch {
		case errors.Is(err, ErrEmailTaken):
			errs["exists"] = true
		case err != nil:
			h.log.ErrorContext(r.Context(), "signup failed", slog.Any("error", err))
			h.renderError(w, http.StatusInternalServerError)
			return
		default:
			h.completeLogin(w, r, user, false, "")
			return
		}
	}

	// Never echo the password back.
	delete(form, "password")
	h.redisplay(w, r, form, errs, "")
}

func (h *Handlers) loginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "account/login", nil)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	form, errs, valid := Validate(r,
		RequiredEmail("email"), RequiredPassword("password"), OptionalBool("remember"))

	if !h.allowAttempt(w, r, form) {
		return
	}

	if errs.Valid() {
		_, rec, err := h.service.Login(r.Context(), valid["email"], valid["password"], clientFromRequest(r))
		switch {
		case errors.Is(err, ErrMatch):
			errs["match"] = true
		case errors.Is(err, ErrInvalidClient):
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": "Invalid client."})
			return
		case err != nil:
			h.log.ErrorContext(r.Context(), "login failed", slog.Any("error", err))
			h.renderError(w, http.StatusInternalServerError)
			return
		default:
			h.resetAttempts(r)
			h.setAuthCookie(w, rec, valid["remember"] == "true")
			http.Redirect(w, r, "/home", http.StatusFound)
			return
		}
	}

	delete(form, "password")
	h.redisplay(w, r, form, errs, "")
}

// completeLogin binds the client to an auth record and issues the auth
// cookie; used after signup and password reset, where the credentials
// were just established.
// completeLogin binds the client to an auth record and redirects home.
// The success flash is set only once the session started; a rejected
// client must not leave one behind for the next page view.
func (h *Handlers) completeLogin(w http.ResponseWriter, r *http.Request, user *User, remember bool, successFlash string) {
	rec, err := h.service.StartSession(r.Context(), user, clientFromRequest(r))
	switch {
	case errors.Is(err, ErrInvalidClient):
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": "Invalid client."})
		return
	case err != nil:
		h.log.ErrorContext(r.Context(), "failed to start session", slog.Any("error", err))
		h.renderError(w, http.StatusInternalServerError)
		return
	}
	if successFlash != "" {
		h.flash(r, "success", successFlash)
	}
	h.setAuthCookie(w, rec, remember)
	http.Redirect(w, r, "/home", http.StatusFound)
}

// allowAttempt applies the login rate limit by client IP. The limiter
// failing open is deliberate: a broken limiter store must not lock
// everyone out.
func (h *Handlers) allowAttempt(w http.ResponseWriter, r *http.Request, form map[string]string) bool {
	if h.limiter == nil {
		return true
	}
	res, err := h.limiter.Allow(r.Context(), clientFromRequest(r).IP)
	if err != nil {
		h.log.ErrorContext(r.Context(), "rate limiter unavailable", slog.Any("error", err))
		return true
	}
	if res.Allowed {
		return true
	}
	delete(form, "password")
	h.flash(r, "error", "Too many attempts. Please try again later.")
	h.redisplay(w, r, form, nil, "")
	return false
}

func (h *Handlers) resetAttempts(r *http.Request) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Reset(r.Context(), clientFromRequest(r).IP); err != nil {
		h.log.ErrorContext(r.Context(), "failed to reset rate limit", slog.Any("error", err))
	}
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if err := h.service.Logout(r.Context(), p.AuthSlug); err != nil {
		h.log.ErrorContext(r.Context(), "logout failed", slog.Any("error", err))
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	h.cookies.Delete(w, h.cfg.AuthCookieName)
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.Clear()
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handlers) forgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "account/forgot_password", nil)
}

func (h *Handlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	form, errs, valid := Validate(r, RequiredEmail("email"))

	if !h.allowAttempt(w, r, form) {
		return
	}
	if !errs.Valid() {
		h.redisplay(w, r, form, errs, "")
		return
	}

	// An unknown address behaves exactly like a known one so the form
	// cannot be used to probe for accounts.
	if err := h.service.ForgotPassword(r.Context(), valid["email"]); err != nil {
		h.log.ErrorContext(r.Context(), "forgot password failed", slog.Any("error", err))
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	h.flash(r, "success", "Your password reset email has been sent. For security purposes it will expire in one hour.")
	h.redisplay(w, r, nil, nil, "")
}

func (h *Handlers) resetPasswordPage(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	token := r.URL.Query().Get("token")

	if _, err := h.service.VerifyResetToken(r.Context(), key, token); err != nil {
		h.expiredResetLink(w, r, err)
		return
	}

	h.render(w, r, "account/reset_password", map[string]any{"key": key, "token": token})
}

func (h *Handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	key := r.FormValue("key")
	token := r.FormValue("token")

	form, errs, valid := Validate(r, RequiredPassword("password"))
	if !errs.Valid() {
		delete(form, "password")
		target := "/account/resetpassword?" + url.Values{"key": {key}, "token": {token}}.Encode()
		h.redisplay(w, r, form, errs, target)
		return
	}

	user, err := h.service.ResetPassword(r.Context(), key, token, valid["password"])
	if err != nil {
		h.expiredResetLink(w, r, err)
		return
	}

	h.completeLogin(w, r, user, false,
		"Your password has been changed. You have been logged in with your new password.")
}

func (h *Handlers) expiredResetLink(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, ErrResetExpired) {
		h.log.ErrorContext(r.Context(), "reset token check failed", slog.Any("error", err))
		h.renderError(w, http.StatusInternalServerError)
		return
	}
	h.flash(r, "error", "That reset password link has expired.")
	http.Redirect(w, r, "/account/forgotpassword", http.StatusFound)
}

func (h *Handlers) emailPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "account/email", nil)
}

func (h *Handlers) changeEmail(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	form, errs, valid := Validate(r, RequiredEmail("email"), RequiredPassword("password"))

	if errs.Valid() {
		err := h.service.ChangeEmail(r.Context(), p.User, valid["password"], valid["email"])
		switch {
		case errors.Is(err, ErrMatch):
			errs["match"] = true
		case errors.Is(err, ErrEmailTaken):
			errs["exists"] = true
		case err != nil:
			h.log.ErrorContext(r.Context(), "email change failed", slog.Any("error", err))
			h.renderError(w, http.StatusInternalServerError)
			return
		default:
			h.flash(r, "success", "Email changed successfully.")
			http.Redirect(w, r, "/account", http.StatusFound)
			return
		}
	}

	delete(form, "password")
	h.redisplay(w, r, form, errs, "")
}

func (h *Handlers) passwordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "account/password", nil)
}

func (h *Handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	form, errs, valid := Validate(r, RequiredPassword("password"), RequiredPassword("new_password"))

	if errs.Valid() {
		err := h.service.ChangePassword(r.Context(), p.User, valid["password"], valid["new_password"])
		switch {
		case errors.Is(err, ErrMatch):
			errs["match"] = true
		case err != nil:
			h.log.ErrorContext(r.Context(), "password change failed", slog.Any("error", err))
			h.renderError(w, http.StatusInternalServerError)
			return
		default:
			h.flash(r, "success", "Password changed successfully.")
			http.Redirect(w, r, "/account", http.StatusFound)
			return
		}
	}

	delete(form, "password")
	delete(form, "new_password")
	h.redisplay(w, r, form, errs, "")
}

func (h *Handlers) listAuths(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	auths, err := h.service.Devices(r.Context(), p.User.ID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to list auth records", slog.Any("error", err))
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	h.render(w, r, "account/auths", map[string]any{
		"auths":            auths,
		"current_auth_key": p.AuthSlug,
	})
}

func (h *Handlers) revokeAuth(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	form, errs, valid := Validate(r, RequiredString("auth_key"))
	if !errs.Valid() {
		h.redisplay(w, r, form, errs, "")
		return
	}

	err := h.service.Revoke(r.Context(), p.User, valid["auth_key"])
	switch {
	case errors.Is(err, ErrNotFound):
		h.renderError(w, http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		h.renderError(w, http.StatusForbidden)
	case err != nil:
		h.log.ErrorContext(r.Context(), "failed to revoke auth record", slog.Any("error", err))
		h.renderError(w, http.StatusInternalServerError)
	default:
		h.flash(r, "success", "Access revoked.")
		h.redisplay(w, r, nil, nil, "")
	}
}
