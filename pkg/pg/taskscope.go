package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type connKey struct{}

// TaskScope returns the connection scope handed to the background queue.
// It checks out one connection from the pool, stashes it in the context
// for the duration of fn, and releases it on every return path including
// panics inside fn.
func TaskScope(pool *pgxpool.Pool) func(ctx context.Context, fn func(ctx context.Context) error) error {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer conn.Release()

		return fn(context.WithValue(ctx, connKey{}, conn))
	}
}

// ConnFromContext returns the connection checked out by TaskScope, or
// nil when the context carries none. Task handlers that were enqueued
// without the database flag get nil and must not touch the pool.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(connKey{}).(*pgxpool.Conn)
	return conn
}
