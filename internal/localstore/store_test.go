package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scheduling-platform/identity/internal/config"
)

// exerciseKV runs the behaviour every backend must share.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "device.id"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v, err %v; want absent", ok, err)
	}

	if err := kv.Set(ctx, map[string]string{"session.id": "s1", "session.refreshToken": "r1", "device.id": "d1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := kv.Get(ctx, "session.id"); err != nil || !ok || v != "s1" {
		t.Fatalf("Get session.id = %q, %v, %v; want s1", v, ok, err)
	}

	// Last write wins.
	if err := kv.Set(ctx, map[string]string{"session.id": "s2"}); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if v, _, _ := kv.Get(ctx, "session.id"); v != "s2" {
		t.Errorf("session.id = %q after overwrite, want s2", v)
	}

	if err := kv.Delete(ctx, "session.id", "session.refreshToken", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "session.id"); ok {
		t.Error("session.id still present after Delete")
	}
	if v, ok, _ := kv.Get(ctx, "device.id"); !ok || v != "d1" {
		t.Errorf("device.id = %q, %v; Delete must not touch other keys", v, ok)
	}
	if err := kv.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	exerciseKV(t, kv)

	_ = kv.Close()
	if _, _, err := kv.Get(context.Background(), "x"); err != ErrClosed {
		t.Errorf("Get after Close err = %v, want ErrClosed", err)
	}
}

func TestSQLKV_SQLite(t *testing.T) {
	cfg := &config.Config{
		StoreDriver:    config.StoreSQLite,
		StorePath:      filepath.Join(t.TempDir(), "device.db"),
		StoreNamespace: "profile-a",
	}
	kv, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	exerciseKV(t, kv)
}

func TestSQLKV_NamespacesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	ctx := context.Background()

	a, err := Open(ctx, &config.Config{StoreDriver: config.StoreSQLite, StorePath: path, StoreNamespace: "a"})
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	defer a.Close()
	if err := a.Set(ctx, map[string]string{"device.id": "da"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	sqlA := a.(*SQLKV)
	b := NewSQLKV(sqlA.db, DialectSQLite, "b")
	if _, ok, err := b.Get(ctx, "device.id"); err != nil || ok {
		t.Errorf("namespace b sees key from a: ok=%v err=%v", ok, err)
	}
}

func TestSQLKV_Rebind(t *testing.T) {
	pg := &SQLKV{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("rebind postgres = %q", got)
	}
	lite := &SQLKV{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("rebind sqlite = %q", got)
	}
}

func TestRedisKV(t *testing.T) {
	url := os.Getenv("LOCALSTORE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LOCALSTORE_TEST_REDIS_URL not set")
	}
	kv, err := Open(context.Background(), &config.Config{StoreDriver: config.StoreRedis, RedisURL: url, StoreNamespace: "localstore-test"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		_ = kv.Delete(context.Background(), "device.id", "session.id", "session.refreshToken")
		kv.Close()
	})
	exerciseKV(t, kv)
}

func TestNewRedisKV_BadURL(t *testing.T) {
	if _, err := NewRedisKV("not-a-url", "ns"); err == nil {
		t.Fatal("NewRedisKV with bad url should fail")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), &config.Config{StoreDriver: "etcd"}); err == nil {
		t.Fatal("Open with unknown driver should fail")
	}
}
