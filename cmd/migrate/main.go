// migrate applies the device store schema from embedded SQL for the configured STORE_DRIVER
// (sqlite or postgres). The agent also migrates on startup; this is for provisioning and rollback.
package main

import (
	"flag"
	"fmt"
	"os"

	"scheduling-platform/identity/internal/config"
	"scheduling-platform/identity/internal/db"
	"scheduling-platform/identity/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	var target string
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		// Creates the parent directory and the file with restrictive permissions.
		sqlDB, err := db.OpenSQLite(cfg.StorePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "sqlite:", err)
			os.Exit(1)
		}
		_ = sqlDB.Close()
		target = cfg.StorePath
	case config.StorePostgres:
		target = cfg.DatabaseURL
	default:
		fmt.Fprintf(os.Stderr, "STORE_DRIVER=%s has no SQL schema; nothing to migrate\n", cfg.StoreDriver)
		return
	}

	if err := migrate.Run(cfg.StoreDriver, target, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
