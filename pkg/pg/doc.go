// Package pg owns the PostgreSQL connection pool: startup connection
// with retry, embedded goose migrations, a health check for the readiness
// endpoint, and the per-task connection scope the background queue uses.
package pg
