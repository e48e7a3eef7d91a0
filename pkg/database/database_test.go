package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{
			name:    "sqlite keeps question marks",
			dialect: DialectSQLite,
			query:   "UPDATE payments SET status = ? WHERE id = ?",
			want:    "UPDATE payments SET status = ? WHERE id = ?",
		},
		{
			name:    "postgres numbers placeholders",
			dialect: DialectPostgres,
			query:   "UPDATE payments SET status = ? WHERE id = ?",
			want:    "UPDATE payments SET status = $1 WHERE id = $2",
		},
		{
			name:    "no placeholders",
			dialect: DialectPostgres,
			query:   "SELECT 1",
			want:    "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Rebind(tt.query))
		})
	}
}

func TestLockSuffix(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", DialectPostgres.LockSuffix())
	assert.Equal(t, "", DialectSQLite.LockSuffix())
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_pragma=foreign_keys(1)", sqliteDSN(":memory:"))
	assert.Equal(t, "data/pr.db?_pragma=foreign_keys(1)", sqliteDSN("data/pr.db"))
	assert.Equal(t, "file:x.db?mode=rwc&_pragma=foreign_keys(1)", sqliteDSN("file:x.db?mode=rwc"))
	assert.Equal(t, "file:x.db?_pragma=foreign_keys(0)", sqliteDSN("file:x.db?_pragma=foreign_keys(0)"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite in memory", func(t *testing.T) {
		db, err := Open(ctx, "sqlite", ":memory:", PoolConfig{})
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, DialectSQLite, db.Dialect)

		var fk int
		require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		assert.Equal(t, 1, fk)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, "mysql", "dsn", PoolConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}
