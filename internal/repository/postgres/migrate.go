package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pawmed/billing-service/pkg/logger"
)

// RunMigrations applies pending goose migrations from dir against the pool's
// database. Called once at startup, before any repository is used.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, dir string, log *logger.Logger) error {
	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return err
	}

	log.Infow("Database migrations applied", "dir", dir)
	return nil
}
