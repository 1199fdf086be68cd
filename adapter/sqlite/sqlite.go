// Package sqlite implements the quarry adapter contract for SQLite on
// top of the cgo-free modernc.org/sqlite driver. It doubles as the
// in-memory backend for this repository's own test suite.
package sqlite

import (
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/adapter/sqlbase"
)

func init() {
	adapter.Register(adapter.SQLite, func(cfg adapter.Config) (adapter.Adapter, error) {
		return New(cfg), nil
	})
}

// Dialect is the SQLite dialect shared by every adapter instance.
var Dialect = &sqlbase.Dialect{
	Name:        adapter.SQLite,
	Quote:       '"',
	Placeholder: sqlbase.Question,
	// LIMIT -1 is SQLite's no-limit form, required before OFFSET.
	NoLimit:        "-1",
	ColumnSQL:      columnSQL,
	HasTableQuery:  "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	HasColumnQuery: "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
	TablesQuery:    "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'",
	IsConstraint:   isConstraint,
}

// New returns an unconnected SQLite adapter for the given config.
func New(cfg adapter.Config) *sqlbase.Base {
	return sqlbase.New(Dialect, cfg, dsn)
}

func dsn(cfg adapter.Config) (string, string, error) {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return "", "", quarry.NewConfigError("sqlite: missing database path")
	}
	return "sqlite", path, nil
}

func isConstraint(err error) bool {
	// modernc.org/sqlite reports SQLITE_CONSTRAINT_* failures through
	// the error text, e.g. "constraint failed: UNIQUE constraint failed:
	// users.email (2067)".
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "constraint")
}

func columnSQL(c adapter.ColumnDef, quote func(string) (string, error)) (string, error) {
	name, err := quote(c.Name)
	if err != nil {
		return "", err
	}
	var typ string
	switch c.Type {
	case "increments", "bigincrements":
		// Rowid alias; NOT NULL and uniqueness are implied.
		return name + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
	case "uuid", "string", "text", "json":
		typ = "TEXT"
	case "integer", "biginteger":
		typ = "INTEGER"
	case "boolean":
		typ = "BOOLEAN"
	case "float":
		typ = "REAL"
	case "decimal":
		p, s := c.Precision, c.Scale
		if p == 0 {
			p, s = 8, 2
		}
		typ = fmt.Sprintf("NUMERIC(%d,%d)", p, s)
	case "timestamp":
		typ = "DATETIME"
	default:
		return "", quarry.NewUnsupportedError(adapter.SQLite, "create table", "column type "+c.Type)
	}
	clause := name + " " + typ + sqlbase.ColumnModifiers(c, false)
	if c.Primary {
		clause += " PRIMARY KEY"
	}
	return clause, nil
}
