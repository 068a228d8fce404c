package session

import (
	"context"
	"net/http"
)

type ctxKey struct{}

// FromContext returns the request's session. The middleware guarantees one
// is present; a nil return means the middleware is not mounted.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// Middleware decodes the session cookie into the request context and saves
// it back just before the first response byte when it changed. Because the
// cookie header is written ahead of WriteHeader, the save happens on every
// exit path, including redirects.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(r)

		sw := &saveWriter{ResponseWriter: w, manager: m, session: sess}
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess))

		next.ServeHTTP(sw, r)

		// Handlers that return without writing still get their session
		// persisted on the implicit 200.
		sw.flush()
	})
}

// saveWriter defers the session save until the response is committed.
type saveWriter struct {
	http.ResponseWriter
	manager *Manager
	session *Session
	saved   bool
}

func (w *saveWriter) flush() {
	if w.saved {
		return
	}
	w.saved = true
	if w.session.Changed() {
		w.manager.Save(w.ResponseWriter, w.session)
	}
}

func (w *saveWriter) WriteHeader(status int) {
	w.flush()
	w.ResponseWriter.WriteHeader(status)
}

func (w *saveWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}
