package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

func TestDSN(t *testing.T) {
	driver, out, err := dsn(adapter.Config{Type: adapter.SQLite, Path: "/tmp/app.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", driver)
	assert.Equal(t, "/tmp/app.db", out)

	// Database doubles as the path when Path is unset.
	_, out, err = dsn(adapter.Config{Type: adapter.SQLite, Database: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, ":memory:", out)

	_, _, err = dsn(adapter.Config{Type: adapter.SQLite})
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))
}

func TestIsConstraint(t *testing.T) {
	assert.True(t, isConstraint(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
	assert.False(t, isConstraint(errors.New("no such table: users")))
	assert.False(t, isConstraint(nil))
}

func TestColumnSQL(t *testing.T) {
	quote := Dialect.QuoteIdent
	tests := []struct {
		col  adapter.ColumnDef
		want string
	}{
		{adapter.ColumnDef{Name: "id", Type: "increments"}, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`},
		{adapter.ColumnDef{Name: "name", Type: "string"}, `"name" TEXT NOT NULL`},
		{adapter.ColumnDef{Name: "meta", Type: "json", Nullable: true}, `"meta" TEXT NULL`},
		{adapter.ColumnDef{Name: "at", Type: "timestamp", Nullable: true}, `"at" DATETIME NULL`},
		{adapter.ColumnDef{Name: "ratio", Type: "float"}, `"ratio" REAL NOT NULL`},
		// Backslashes are plain characters in SQLite string literals.
		{adapter.ColumnDef{Name: "dir", Type: "string", HasDefault: true, Default: `C:\tmp`},
			`"dir" TEXT NOT NULL DEFAULT 'C:\tmp'`},
	}
	for _, tt := range tests {
		got, err := columnSQL(tt.col, quote)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestOffsetWithoutLimitPaginates(t *testing.T) {
	ctx := context.Background()
	a := New(adapter.Config{Type: adapter.SQLite, Path: ":memory:", Pool: adapter.PoolConfig{Max: 1}})
	require.NoError(t, a.Connect(ctx))
	t.Cleanup(func() { _ = a.Close() })

	_, err := a.Raw(ctx, `CREATE TABLE "nums" ("n" INTEGER NOT NULL)`)
	require.NoError(t, err)
	for n := 1; n <= 3; n++ {
		_, err = a.Insert(ctx, &adapter.Mutation{Table: "nums", Values: adapter.Row{"n": n}})
		require.NoError(t, err)
	}

	rows, err := a.Select(ctx, &adapter.Query{
		Table:  "nums",
		Orders: []adapter.Order{{Column: "n", Direction: "ASC"}},
		Offset: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0]["n"])
	assert.Equal(t, int64(3), rows[1]["n"])
}
