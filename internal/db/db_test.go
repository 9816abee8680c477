package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestMigrateCreatesSchema(t *testing.T) {
	conn, err := OpenMigrated(Memory)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	for _, table := range []string{"users", "scores", "journey_completions", "device_prefs"} {
		var name string
		if err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := OpenMigrated(Memory)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 recorded migrations, got %d", n)
	}
}

func TestMigrateFailureRollsBack(t *testing.T) {
	conn, err := Open(Memory)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	fsys := fstest.MapFS{
		"001_ok.sql":  {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
		"002_bad.sql": {Data: []byte(`CREATE TABLE b (id INTEGER); THIS IS NOT SQL;`)},
	}
	if err := migrateFS(conn, fsys); err == nil {
		t.Fatal("expected error from bad migration")
	}
	var n int
	_ = conn.QueryRow(`SELECT COUNT(*) FROM _migrations WHERE name='002_bad.sql'`).Scan(&n)
	if n != 0 {
		t.Fatal("failed migration was recorded")
	}
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.db")
	conn, err := OpenMigrated(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
