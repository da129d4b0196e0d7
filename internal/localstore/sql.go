package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect selects placeholder and timestamp handling for SQLKV.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// SQLKV stores entries in the device_kv table created by internal/db/migrations.
type SQLKV struct {
	db        *sql.DB
	dialect   Dialect
	namespace string
	nowF      func() time.Time
}

// NewSQLKV returns a KV over db scoped to namespace. The schema must already be migrated.
func NewSQLKV(db *sql.DB, dialect Dialect, namespace string) *SQLKV {
	return &SQLKV{db: db, dialect: dialect, namespace: namespace, nowF: time.Now}
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	q := s.rebind(`SELECT value FROM device_kv WHERE namespace = ? AND key = ?`)
	var v string
	err := s.db.QueryRowContext(ctx, q, s.namespace, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("localstore: get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLKV) Set(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	q := s.rebind(`INSERT INTO device_kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.timestamp()
	for k, v := range entries {
		if _, err := tx.ExecContext(ctx, q, s.namespace, k, v, now); err != nil {
			return fmt.Errorf("localstore: set %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("localstore: commit: %w", err)
	}
	return nil
}

func (s *SQLKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q := s.rebind(`DELETE FROM device_kv WHERE namespace = ? AND key = ?`)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, q, s.namespace, k); err != nil {
			return fmt.Errorf("localstore: delete %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("localstore: commit: %w", err)
	}
	return nil
}

func (s *SQLKV) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLKV) Close() error {
	return s.db.Close()
}

// timestamp is a string for SQLite (TEXT column) and a time.Time for Postgres (TIMESTAMPTZ).
func (s *SQLKV) timestamp() any {
	now := s.nowF().UTC()
	if s.dialect == DialectSQLite {
		return now.Format(time.RFC3339Nano)
	}
	return now
}

// rebind converts ? placeholders to $n for Postgres.
func (s *SQLKV) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	out := make([]byte, 0, len(q)+8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, q[i])
	}
	return string(out)
}
