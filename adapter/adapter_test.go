package adapter_test

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/adapter/mysql"

	_ "github.com/quarrydb/quarry/adapter/postgres"
	_ "github.com/quarrydb/quarry/adapter/sqlite"
)

func TestOpenKnownBackends(t *testing.T) {
	for _, typ := range []string{adapter.MySQL, adapter.Postgres, adapter.SQLite} {
		a, err := adapter.Open(adapter.Config{Type: typ, Database: "test", Path: ":memory:"})
		require.NoError(t, err, typ)
		assert.Equal(t, typ, a.Backend())
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := adapter.Open(adapter.Config{Type: "oracle", Database: "test"})
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))
}

func TestOpenValidatesConfig(t *testing.T) {
	_, err := adapter.Open(adapter.Config{Type: adapter.MySQL})
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))

	_, err = adapter.Open(adapter.Config{})
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))
}

func TestConfigPoolBounds(t *testing.T) {
	err := adapter.Config{Type: adapter.MySQL, Database: "d", Pool: adapter.PoolConfig{Min: 5, Max: 2}}.Validate()
	assert.True(t, quarry.IsConfig(err))

	err = adapter.Config{Type: adapter.MySQL, Database: "d", Pool: adapter.PoolConfig{Min: 1, Max: 4}}.Validate()
	assert.NoError(t, err)
}

func TestBackendsSorted(t *testing.T) {
	names := adapter.Backends()
	assert.Contains(t, names, adapter.MySQL)
	assert.Contains(t, names, adapter.Postgres)
	assert.Contains(t, names, adapter.SQLite)
	assert.IsNonDecreasing(t, names)
}

func TestValidateIdent(t *testing.T) {
	assert.NoError(t, adapter.ValidateIdent("users"))
	assert.NoError(t, adapter.ValidateIdent("users.id"))
	assert.Error(t, adapter.ValidateIdent(""))
	assert.Error(t, adapter.ValidateIdent("users; DROP TABLE users"))
	assert.Error(t, adapter.ValidateIdent(`name"--`))
}

func TestDebugAdapter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	base := mysql.New(adapter.Config{Type: adapter.MySQL, Database: "test"})
	base.UseDB(db)

	var buf bytes.Buffer
	d := adapter.Debug(base, zerolog.New(&buf))
	assert.Same(t, adapter.Adapter(base), d.Unwrap())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	rows, err := d.Select(context.Background(), &adapter.Query{Table: "users"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `users`")).
		WillReturnError(assert.AnError)
	_, err = d.Delete(context.Background(), &adapter.Mutation{Table: "users"})
	require.Error(t, err)

	assert.Equal(t, int64(2), d.Ops())
	assert.Equal(t, int64(1), d.Errors())
	assert.Contains(t, buf.String(), `"op":"select"`)
	assert.Contains(t, buf.String(), `"table":"users"`)
	assert.Contains(t, buf.String(), `"backend":"mysql"`)
}
