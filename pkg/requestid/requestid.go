// Package requestid assigns every request an identifier that travels
// through the context, the response headers, and each log record
// produced while handling it.
package requestid

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

type contextKey struct{}

// WithContext stores the request id in the context.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the request id or "" when none was assigned.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Middleware reuses a well-formed inbound id so traces can span
// services, and mints a fresh one otherwise. The id is echoed back in
// the response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !validID.MatchString(id) {
			id = uuid.New().String()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

// LoggerExtractor adapts FromContext to the logger's context extractor
// shape.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}
