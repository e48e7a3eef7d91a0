package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// NewSQLiteDB opens a local SQLite file (or ":memory:") with foreign keys enforced.
// SQLite allows a single writer, so the pool is pinned to one connection.
func NewSQLiteDB(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		path = "pr_tracker.db"
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{DB: db, Dialect: DialectSQLite}, nil
}

func sqliteDSN(path string) string {
	const fk = "_pragma=foreign_keys(1)"
	if strings.Contains(path, "foreign_keys") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + fk
	}
	if path == ":memory:" {
		return "file::memory:?" + fk
	}
	return path + "?" + fk
}
