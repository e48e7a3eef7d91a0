package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect identifies the SQL flavour spoken by the underlying driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps a connection pool together with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// PoolConfig holds connection pool settings
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens a database for the given driver name ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*DB, error) {
	switch Dialect(driver) {
	case DialectSQLite:
		return NewSQLiteDB(ctx, dsn)
	case DialectPostgres:
		return NewPostgresDB(ctx, dsn, pool)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Wrap adopts an already opened *sql.DB.
func Wrap(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, Dialect: dialect}
}

// Rebind rewrites '?' placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// LockSuffix returns the row-locking clause for SELECT ... used before an update.
func (d Dialect) LockSuffix() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
