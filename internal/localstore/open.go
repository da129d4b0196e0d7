package localstore

import (
	"context"
	"fmt"

	"scheduling-platform/identity/internal/config"
	"scheduling-platform/identity/internal/db"
	"scheduling-platform/identity/internal/db/migrate"
)

// Open builds the KV selected by cfg.StoreDriver. SQL backends are migrated before use.
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return NewMemoryKV(), nil
	case config.StoreSQLite:
		// OpenSQLite creates the parent directory the migrator needs.
		sqlDB, err := db.OpenSQLite(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		if err := migrate.Run(migrate.DriverSQLite, cfg.StorePath, "up"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("localstore: migrate sqlite: %w", err)
		}
		return NewSQLKV(sqlDB, DialectSQLite, cfg.StoreNamespace), nil
	case config.StorePostgres:
		if err := migrate.Run(migrate.DriverPostgres, cfg.DatabaseURL, "up"); err != nil {
			return nil, fmt.Errorf("localstore: migrate postgres: %w", err)
		}
		sqlDB, err := db.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewSQLKV(sqlDB, DialectPostgres, cfg.StoreNamespace), nil
	case config.StoreRedis:
		kv, err := NewRedisKV(cfg.RedisURL, cfg.StoreNamespace)
		if err != nil {
			return nil, err
		}
		if err := kv.Ping(ctx); err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("localstore: redis ping: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("localstore: unknown driver %q", cfg.StoreDriver)
	}
}
