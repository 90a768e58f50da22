package main

import (
	"fmt"
	"time"

	"pagebin/internal/config"
	"pagebin/internal/storage"
	"pagebin/internal/storage/boltstore"
	"pagebin/internal/storage/fsstore"
	"pagebin/internal/storage/pgstore"
	"pagebin/internal/storage/sqlitestore"
)

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendFS:
		return fsstore.Open(cfg.DataDir)
	case config.BackendPG:
		return pgstore.Open(cfg.DatabaseURL, pgstore.Options{
			MaxOpenConns:    cfg.DBMaxConns,
			MaxIdleConns:    cfg.DBMaxConns,
			ConnMaxLifetime: 30 * time.Minute,
		})
	case config.BackendSQLite:
		return sqlitestore.Open(cfg.DBPath)
	case config.BackendBolt:
		return boltstore.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
