package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/tea-service/internal/config"
)

// Open builds the store selected by STORE_BACKEND. The returned close function is never nil.
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case config.StoreMemory:
		return NewMemoryStore(), noop, nil
	case config.StoreFile:
		store, err := NewFileStore(cfg.ScenarioDir, log)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("failed to ping database: %w", err)
		}
		store := NewPostgresStore(db, log)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return store, db.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
