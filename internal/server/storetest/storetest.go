// Package storetest opens migrated throwaway SQLite databases for tests.
package storetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/casely/internal/dbx"
	"github.com/dmitrijs2005/casely/internal/server/migrations"
	"github.com/pressly/goose/v3"
)

// DB holds the write and read-only handles of one test database.
type DB struct {
	RW   *sql.DB
	RO   *sql.DB
	Path string
}

// New creates a fresh database file under t.TempDir, applies the embedded
// migrations and returns both handles. They are closed on test cleanup.
func New(t testing.TB) *DB {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "casely.db")

	rw, err := dbx.OpenSQLite(ctx, path, dbx.ReadWrite)
	if err != nil {
		t.Fatalf("open rw: %v", err)
	}
	t.Cleanup(func() { _ = rw.Close() })

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.UpContext(ctx, rw, "."); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ro, err := dbx.OpenSQLite(ctx, path, dbx.ReadOnly)
	if err != nil {
		t.Fatalf("open ro: %v", err)
	}
	t.Cleanup(func() { _ = ro.Close() })

	return &DB{RW: rw, RO: ro, Path: path}
}

// Exec runs a statement on the write handle and fails the test on error.
func (d *DB) Exec(t testing.TB, query string, args ...any) {
	t.Helper()
	if _, err := d.RW.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
