// Package db opens the SQL backends of the device-local store and embeds their migrations.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	dirPermissions  = 0o700
	filePermissions = 0o600
	busyTimeoutMS   = 5000
	pingTimeout     = 5 * time.Second
)

// OpenSQLite opens (creating if needed) the SQLite file at path in WAL mode.
// The file holds refresh tokens, so it is restricted to the owner.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("db: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, busyTimeoutMS)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Single writer.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}
	_ = os.Chmod(path, filePermissions)
	return sqlDB, nil
}
