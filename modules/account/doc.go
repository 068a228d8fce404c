// Package account implements the user account flows: signup, login,
// logout, password reset, email and password changes, and per-device
// auth record management.
//
// The package is split into a storage layer (Postgres and in-memory
// backends behind the Storage interface), an identity resolver that
// caches slug-to-user lookups in a bounded LRU, a Service holding the
// domain rules, and HTTP handlers plus middleware that adapt the
// service to chi. Rendering is delegated to a Renderer collaborator;
// outbound email goes through the task queue.
package account
