package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies the embedded goose migrations. The pool is bridged to
// database/sql because goose does not speak pgx natively; the wrapper
// shares the underlying connections.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, cfg Config, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration db bridge", slog.String("error", err.Error()))
		}
	}()

	goose.SetLogger(&gooseSlogAdapter{log: log})
	goose.SetBaseFS(migrations)
	goose.SetTableName(cfg.MigrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// gooseSlogAdapter routes goose's Printf-style output through slog.
type gooseSlogAdapter struct {
	log *slog.Logger
}

func (a *gooseSlogAdapter) Fatalf(format string, v ...any) {
	a.log.Error(fmt.Sprintf(format, v...))
}

func (a *gooseSlogAdapter) Printf(format string, v ...any) {
	a.log.Info(fmt.Sprintf(format, v...))
}
