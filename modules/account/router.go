package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mountable is implemented by services that expose their routes as an
// http.Handler.
type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures the account router. Account is required;
// Admin is mounted only when provided.
type RouterOptions struct {
	Account Mountable
	Admin   Mountable

	// Middleware wraps every route with current-user resolution and
	// panic recovery.
	Middleware *Middleware
}

// Router assembles the account routes with their shared middleware.
//
// Example:
//
//	handlers := account.NewHandlers(svc, mw, cookies, renderer, cfg, log)
//	r.Mount("/", account.Router(account.RouterOptions{
//	    Account:    handlers,
//	    Middleware: mw,
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(RemoveSlash)
	if opts.Middleware != nil {
		r.Use(opts.Middleware.Recoverer)
		r.Use(opts.Middleware.CurrentUser)
	}

	if opts.Account != nil {
		r.Mount("/account", opts.Account.Handle())
	}
	if opts.Admin != nil && opts.Middleware != nil {
		r.With(opts.Middleware.RequireAdmin).Mount("/admin", opts.Admin.Handle())
	}

	return r
}
