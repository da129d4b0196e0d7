package db

import "embed"

// MigrationFS embeds SQL migrations for each SQL store driver, one directory per driver
// (migrations/sqlite, migrations/postgres). Used by internal/db/migrate and cmd/migrate.
//
//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var MigrationFS embed.FS
