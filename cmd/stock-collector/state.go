package main

import (
	"context"
	"fmt"

	"stockcollector/internal/config"
	"stockcollector/internal/store"
)

// openStateStore opens the checkpoint backend selected by cfg.State.Backend.
func openStateStore(ctx context.Context, cfg *config.Config) (store.StateStore, error) {
	switch cfg.State.Backend {
	case "file":
		return store.NewFileStateStore(cfg.State.FilePath)
	case "sqlite":
		return store.NewSQLiteStateStore(cfg.Storage.SQLitePath)
	case "redis":
		r := cfg.State.Redis
		return store.DialRedis(ctx, r.Addr, r.Password, r.DB, r.Prefix)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}
