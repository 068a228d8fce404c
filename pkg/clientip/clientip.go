// Package clientip resolves the originating client address of an HTTP
// request. Login records store this address per device, and requests
// for which no address can be determined are rejected as invalid
// clients, so resolution errs toward returning nothing rather than a
// proxy's address.
package clientip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// GetIP returns the client's IP address, checking proxy headers in
// trust order before falling back to the socket address. An empty
// string means no valid address was found anywhere.
func GetIP(r *http.Request) string {
	// CDN headers carry the verified end-client address when present.
	for _, header := range []string{"CF-Connecting-IP", "DO-Connecting-IP"} {
		if ip := parseIP(r.Header.Get(header)); ip != "" {
			return ip
		}
	}

	// X-Forwarded-For may hold a chain; the first valid entry is the client.
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for ip := range strings.SplitSeq(forwarded, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP validates and normalizes an address, returning "" when it is
// not a literal IP.
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

type contextKey struct{}

// SetIPToContext stores the client IP in the context.
func SetIPToContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// GetIPFromContext retrieves the client IP placed by Middleware, or ""
// when resolution failed.
func GetIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Middleware resolves the client IP once per request and stores it in
// the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetIPToContext(r.Context(), GetIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
