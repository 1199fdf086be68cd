package schema_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/adapter/sqlite"
	"github.com/quarrydb/quarry/schema"
)

func sqliteSchema(t *testing.T) (*schema.Schema, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	a := sqlite.New(adapter.Config{Type: adapter.SQLite, Path: ":memory:"})
	a.UseDB(db)
	t.Cleanup(func() { _ = a.Close() })
	return schema.New(a), mock
}

func TestSchemaCreate(t *testing.T) {
	s, mock := sqliteSchema(t)
	mock.ExpectExec(regexp.QuoteMeta(
		`CREATE TABLE "users" (`+
			`"id" INTEGER PRIMARY KEY AUTOINCREMENT, `+
			`"email" TEXT NOT NULL UNIQUE, `+
			`"name" TEXT NOT NULL DEFAULT 'anon', `+
			`"age" INTEGER NULL, `+
			`"created_at" DATETIME NULL, `+
			`"updated_at" DATETIME NULL)`,
	)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(
		`CREATE INDEX "users_name_age_idx" ON "users" ("name", "age")`,
	)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Create(context.Background(), "users", func(b *schema.Blueprint) {
		b.Increments("id")
		b.String("email").Unique()
		b.String("name").Default("anon")
		b.Integer("age").Nullable()
		b.Timestamps()
		b.Index("name", "age")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaTableAddsColumns(t *testing.T) {
	s, mock := sqliteSchema(t)
	mock.ExpectExec(regexp.QuoteMeta(
		`ALTER TABLE "users" ADD COLUMN "bio" TEXT NULL`,
	)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Table(context.Background(), "users", func(b *schema.Blueprint) {
		b.Text("bio").Nullable()
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaDrop(t *testing.T) {
	s, mock := sqliteSchema(t)
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "users"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Drop(context.Background(), "users"))
}

func TestSchemaHasTable(t *testing.T) {
	s, mock := sqliteSchema(t)
	mock.ExpectQuery("sqlite_master").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := s.HasTable(context.Background(), "users")
	require.NoError(t, err)
	assert.True(t, ok)
}
