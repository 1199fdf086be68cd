package mysql

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/adapter"
)

func TestDSN(t *testing.T) {
	driver, out, err := dsn(adapter.Config{
		Type:     adapter.MySQL,
		Host:     "db.internal",
		Database: "app",
		Username: "app",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "mysql", driver)
	assert.Contains(t, out, "app:hunter2@tcp(db.internal:3306)/app")
	assert.Contains(t, out, "parseTime=true")

	_, out, err = dsn(adapter.Config{Type: adapter.MySQL, Host: "h", Port: 3307, Database: "d", SSL: true})
	require.NoError(t, err)
	assert.Contains(t, out, "h:3307")
	assert.Contains(t, out, "tls=true")

	_, out, err = dsn(adapter.Config{Type: adapter.MySQL, URI: "user@tcp(x)/db"})
	require.NoError(t, err)
	assert.Equal(t, "user@tcp(x)/db", out)
}

func TestIsConstraint(t *testing.T) {
	assert.True(t, isConstraint(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, isConstraint(&mysql.MySQLError{Number: 1452, Message: "FK fails"}))
	assert.False(t, isConstraint(&mysql.MySQLError{Number: 1064, Message: "syntax"}))
	assert.False(t, isConstraint(assert.AnError))
	assert.False(t, isConstraint(nil))
}

func TestColumnSQL(t *testing.T) {
	quote := Dialect.QuoteIdent
	tests := []struct {
		col  adapter.ColumnDef
		want string
	}{
		{adapter.ColumnDef{Name: "id", Type: "increments"},
			"`id` INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY"},
		{adapter.ColumnDef{Name: "id", Type: "bigincrements"},
			"`id` BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY"},
		{adapter.ColumnDef{Name: "name", Type: "string"},
			"`name` VARCHAR(255) NOT NULL"},
		{adapter.ColumnDef{Name: "code", Type: "string", Length: 10, Unique: true},
			"`code` VARCHAR(10) NOT NULL UNIQUE"},
		{adapter.ColumnDef{Name: "active", Type: "boolean", HasDefault: true, Default: true},
			"`active` TINYINT(1) NOT NULL DEFAULT TRUE"},
		{adapter.ColumnDef{Name: "price", Type: "decimal", Precision: 10, Scale: 4},
			"`price` DECIMAL(10,4) NOT NULL"},
		{adapter.ColumnDef{Name: "price", Type: "decimal"},
			"`price` DECIMAL(8,2) NOT NULL"},
		{adapter.ColumnDef{Name: "meta", Type: "json", Nullable: true},
			"`meta` JSON NULL"},
		{adapter.ColumnDef{Name: "key", Type: "uuid", Primary: true},
			"`key` CHAR(36) NOT NULL PRIMARY KEY"},
		// Backslash is an escape character in MySQL string literals.
		{adapter.ColumnDef{Name: "dir", Type: "string", HasDefault: true, Default: `C:\tmp`},
			"`dir` VARCHAR(255) NOT NULL DEFAULT 'C:\\\\tmp'"},
	}
	for _, tt := range tests {
		got, err := columnSQL(tt.col, quote)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := columnSQL(adapter.ColumnDef{Name: "x", Type: "geometry"}, quote)
	assert.Error(t, err)
}
