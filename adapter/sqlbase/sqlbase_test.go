package sqlbase_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/adapter/mysql"
	"github.com/quarrydb/quarry/adapter/postgres"
	"github.com/quarrydb/quarry/adapter/sqlbase"
)

func mysqlBase(t *testing.T) (*sqlbase.Base, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	a := mysql.New(adapter.Config{Type: adapter.MySQL, Database: "test"})
	a.UseDB(db)
	t.Cleanup(func() { _ = a.Close() })
	return a, mock
}

func TestInsertReportsGeneratedKey(t *testing.T) {
	a, mock := mysqlBase(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users` (`name`) VALUES (?)")).
		WithArgs("ada").
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := a.Insert(context.Background(), &adapter.Mutation{
		Table:      "users",
		Values:     adapter.Row{"name": "ada"},
		PrimaryKey: "id",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestInsertProvidedKeyPassthrough(t *testing.T) {
	// Caller-assigned keys (uuid) come back untouched; the engine's
	// LastInsertId is irrelevant for them.
	a, mock := mysqlBase(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users` (`id`, `name`) VALUES (?, ?)")).
		WithArgs("a-uuid", "ada").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := a.Insert(context.Background(), &adapter.Mutation{
		Table:      "users",
		Values:     adapter.Row{"id": "a-uuid", "name": "ada"},
		PrimaryKey: "id",
	})
	require.NoError(t, err)
	assert.Equal(t, "a-uuid", id)
}

func TestInsertWithoutKeyColumn(t *testing.T) {
	// Pivot-style inserts carry no primary key and report none.
	a, mock := mysqlBase(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `post_tag` (`post_id`, `tag_id`) VALUES (?, ?)")).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := a.Insert(context.Background(), &adapter.Mutation{
		Table:  "post_tag",
		Values: adapter.Row{"post_id": 1, "tag_id": 2},
	})
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestInsertReturning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	a := postgres.New(adapter.Config{Type: adapter.Postgres, Database: "test"})
	a.UseDB(db)
	t.Cleanup(func() { _ = a.Close() })

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users" ("name") VALUES ($1) RETURNING "id"`)).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := a.Insert(context.Background(), &adapter.Mutation{
		Table:      "users",
		Values:     adapter.Row{"name": "ada"},
		PrimaryKey: "id",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestTransactionLifecycle(t *testing.T) {
	a, mock := mysqlBase(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users` (`name`) VALUES (?)")).
		WithArgs("ada").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, a.Begin(ctx))
	_, err := a.Insert(ctx, &adapter.Mutation{Table: "users", Values: adapter.Row{"name": "ada"}})
	require.NoError(t, err)
	require.NoError(t, a.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNestedTransactionSavepoints(t *testing.T) {
	a, mock := mysqlBase(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT quarry_sp_2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK TO SAVEPOINT quarry_sp_2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SAVEPOINT quarry_sp_2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RELEASE SAVEPOINT quarry_sp_2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, a.Begin(ctx))
	require.NoError(t, a.Begin(ctx))
	require.NoError(t, a.Rollback(ctx))
	require.NoError(t, a.Begin(ctx))
	require.NoError(t, a.Commit(ctx))
	require.NoError(t, a.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitOutsideTransaction(t *testing.T) {
	a, _ := mysqlBase(t)
	assert.Error(t, a.Commit(context.Background()))
	assert.Error(t, a.Rollback(context.Background()))
}

func TestRawReadAndWrite(t *testing.T) {
	a, mock := mysqlBase(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT VERSION()").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("8.0.36"))
	v, err := a.Raw(ctx, "SELECT VERSION()")
	require.NoError(t, err)
	rows, ok := v.([]adapter.Row)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "8.0.36", rows[0]["version"])

	mock.ExpectExec("TRUNCATE TABLE sessions").WillReturnResult(sqlmock.NewResult(0, 3))
	v, err = a.Raw(ctx, "TRUNCATE TABLE sessions")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestByteColumnsBecomeStrings(t *testing.T) {
	a, mock := mysqlBase(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow([]byte("ada")))

	rows, err := a.Select(context.Background(), &adapter.Query{Table: "users"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ada", rows[0]["name"])
}

func TestIdentifierInjectionRejected(t *testing.T) {
	a, _ := mysqlBase(t)
	_, err := a.Select(context.Background(), &adapter.Query{
		Table: "users; DROP TABLE users",
	})
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))

	_, err = a.Select(context.Background(), &adapter.Query{
		Table:      "users",
		Predicates: []adapter.Predicate{{Column: "name`--", Op: "=", Value: "x"}},
	})
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))
}

func TestUnsupportedOperator(t *testing.T) {
	a, _ := mysqlBase(t)
	_, err := a.Select(context.Background(), &adapter.Query{
		Table:      "users",
		Predicates: []adapter.Predicate{{Column: "name", Op: "matches", Value: "x"}},
	})
	require.Error(t, err)
	assert.True(t, quarry.IsUnsupported(err))
}

func TestCloseIdempotent(t *testing.T) {
	a, mock := mysqlBase(t)
	mock.ExpectClose()
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
