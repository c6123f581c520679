package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/casely/internal/filex"
	_ "modernc.org/sqlite"
)

// Mode selects how a SQLite handle is opened.
type Mode int

const (
	// ReadWrite handles run every transaction as BEGIN IMMEDIATE.
	ReadWrite Mode = iota
	// ReadOnly handles refuse writes at the SQLite level (query_only).
	ReadOnly
)

const busyTimeout = 5 * time.Second

// SQLiteDSN builds a modernc.org/sqlite DSN for path in the given mode.
func SQLiteDSN(path string, mode Mode) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")

	switch mode {
	case ReadOnly:
		q.Set("mode", "ro")
		q.Add("_pragma", "query_only(1)")
	default:
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
		q.Set("_txlock", "immediate")
	}

	return "file:" + path + "?" + q.Encode()
}

// OpenSQLite opens the database file at path and verifies the connection.
// The parent directory is created for read-write handles.
func OpenSQLite(ctx context.Context, path string, mode Mode) (*sql.DB, error) {
	if mode == ReadWrite {
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", SQLiteDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if mode == ReadWrite {
		// one writer; SQLite serializes writes anyway
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
