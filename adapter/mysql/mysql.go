// Package mysql implements the quarry adapter contract for MySQL and
// MariaDB on top of go-sql-driver/mysql.
package mysql

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/adapter/sqlbase"
)

func init() {
	adapter.Register(adapter.MySQL, func(cfg adapter.Config) (adapter.Adapter, error) {
		return New(cfg), nil
	})
}

// Dialect is the MySQL dialect shared by every adapter instance.
var Dialect = &sqlbase.Dialect{
	Name:        adapter.MySQL,
	Quote:       '`',
	Placeholder: sqlbase.Question,
	// The maximum BIGINT UNSIGNED, MySQL's documented idiom for an
	// OFFSET without an upper bound.
	NoLimit:          "18446744073709551615",
	BackslashEscapes: true,
	ColumnSQL:        columnSQL,
	HasTableQuery: "SELECT COUNT(*) FROM information_schema.tables " +
		"WHERE table_schema = DATABASE() AND table_name = ?",
	HasColumnQuery: "SELECT COUNT(*) FROM information_schema.columns " +
		"WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?",
	TablesQuery:  "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE()",
	IsConstraint: isConstraint,
}

// New returns an unconnected MySQL adapter for the given config.
func New(cfg adapter.Config) *sqlbase.Base {
	return sqlbase.New(Dialect, cfg, dsn)
}

func dsn(cfg adapter.Config) (string, string, error) {
	if cfg.URI != "" {
		return "mysql", cfg.URI, nil
	}
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.SSL {
		mc.TLSConfig = "true"
	}
	for k, v := range cfg.Options {
		if mc.Params == nil {
			mc.Params = make(map[string]string)
		}
		mc.Params[k] = v
	}
	return "mysql", mc.FormatDSN(), nil
}

// Constraint-violation error numbers: duplicate entry, null violation,
// foreign key on insert/update and delete, check constraint.
var constraintCodes = map[uint16]struct{}{
	1062: {}, 1048: {}, 1452: {}, 1451: {}, 3819: {},
}

func isConstraint(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	_, ok := constraintCodes[me.Number]
	return ok
}

func columnSQL(c adapter.ColumnDef, quote func(string) (string, error)) (string, error) {
	name, err := quote(c.Name)
	if err != nil {
		return "", err
	}
	var typ string
	switch c.Type {
	case "increments":
		return name + " INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY", nil
	case "bigincrements":
		return name + " BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY", nil
	case "uuid":
		typ = "CHAR(36)"
	case "string":
		length := c.Length
		if length == 0 {
			length = 255
		}
		typ = "VARCHAR(" + strconv.Itoa(length) + ")"
	case "text":
		typ = "TEXT"
	case "integer":
		typ = "INT"
	case "biginteger":
		typ = "BIGINT"
	case "boolean":
		typ = "TINYINT(1)"
	case "float":
		typ = "DOUBLE"
	case "decimal":
		typ = fmt.Sprintf("DECIMAL(%d,%d)", precision(c), scale(c))
	case "json":
		typ = "JSON"
	case "timestamp":
		typ = "TIMESTAMP"
	default:
		return "", quarry.NewUnsupportedError(adapter.MySQL, "create table", "column type "+c.Type)
	}
	clause := name + " " + typ + sqlbase.ColumnModifiers(c, true)
	if c.Primary {
		clause += " PRIMARY KEY"
	}
	return clause, nil
}

func precision(c adapter.ColumnDef) int {
	if c.Precision > 0 {
		return c.Precision
	}
	return 8
}

func scale(c adapter.ColumnDef) int {
	if c.Scale > 0 {
		return c.Scale
	}
	return 2
}
