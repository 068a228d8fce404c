// Package session carries per-request key-value state in a signed, expiring
// cookie. Nothing is persisted server-side.
//
// A request's session is decoded once by the middleware and stashed in the
// request context. Handlers mutate it freely; just before the first byte of
// the response goes out, the middleware compares the session against its
// decoded snapshot and emits a Set-Cookie header only if something changed.
// That covers every exit path (rendered pages, JSON responses, redirects)
// without handlers having to remember a save call.
//
// A missing, tampered, malformed or expired cookie is never an error: it
// yields a fresh empty session.
package session
