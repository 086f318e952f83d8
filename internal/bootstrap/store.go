// Package bootstrap opens the configured persistence backend for the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-portal/internal/config"
	"github.com/helpdesk-labs/ticket-portal/internal/persistence"
	"github.com/helpdesk-labs/ticket-portal/internal/repository"
)

// OpenStore connects the store selected by cfg.Store.Driver. The returned
// closer releases the underlying connections.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		db, err := persistence.OpenSQLite(cfg.SQLite, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil

	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		return repository.NewPostgresStore(pg.PoolHandle()), pg.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
