// Package postgres implements the quarry adapter contract for
// PostgreSQL on top of lib/pq.
package postgres

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/adapter/sqlbase"
)

func init() {
	adapter.Register(adapter.Postgres, func(cfg adapter.Config) (adapter.Adapter, error) {
		return New(cfg), nil
	})
}

// Dialect is the PostgreSQL dialect shared by every adapter instance.
var Dialect = &sqlbase.Dialect{
	Name:        adapter.Postgres,
	Quote:       '"',
	Placeholder: sqlbase.Dollar,
	ReturningID: true,
	ColumnSQL:   columnSQL,
	HasTableQuery: "SELECT COUNT(*) FROM information_schema.tables " +
		"WHERE table_schema = current_schema() AND table_name = $1",
	HasColumnQuery: "SELECT COUNT(*) FROM information_schema.columns " +
		"WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2",
	TablesQuery:  "SELECT tablename FROM pg_tables WHERE schemaname = current_schema()",
	IsConstraint: isConstraint,
}

// New returns an unconnected PostgreSQL adapter for the given config.
func New(cfg adapter.Config) *sqlbase.Base {
	return sqlbase.New(Dialect, cfg, dsn)
}

func dsn(cfg adapter.Config) (string, string, error) {
	if cfg.URI != "" {
		return "postgres", cfg.URI, nil
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	kv := []string{
		"host=" + cfg.Host,
		"port=" + strconv.Itoa(port),
		"dbname=" + cfg.Database,
	}
	if cfg.Username != "" {
		kv = append(kv, "user="+cfg.Username)
	}
	if cfg.Password != "" {
		kv = append(kv, "password="+cfg.Password)
	}
	if cfg.SSL {
		kv = append(kv, "sslmode=require")
	} else {
		kv = append(kv, "sslmode=disable")
	}
	for k, v := range cfg.Options {
		kv = append(kv, k+"="+v)
	}
	return "postgres", strings.Join(kv, " "), nil
}

func isConstraint(err error) bool {
	var pe *pq.Error
	// Class 23 covers integrity constraint violations: not null,
	// foreign key, unique and check.
	return errors.As(err, &pe) && pe.Code.Class() == "23"
}

func columnSQL(c adapter.ColumnDef, quote func(string) (string, error)) (string, error) {
	name, err := quote(c.Name)
	if err != nil {
		return "", err
	}
	var typ string
	switch c.Type {
	case "increments":
		return name + " SERIAL PRIMARY KEY", nil
	case "bigincrements":
		return name + " BIGSERIAL PRIMARY KEY", nil
	case "uuid":
		typ = "UUID"
	case "string":
		length := c.Length
		if length == 0 {
			length = 255
		}
		typ = "VARCHAR(" + strconv.Itoa(length) + ")"
	case "text":
		typ = "TEXT"
	case "integer":
		typ = "INTEGER"
	case "biginteger":
		typ = "BIGINT"
	case "boolean":
		typ = "BOOLEAN"
	case "float":
		typ = "DOUBLE PRECISION"
	case "decimal":
		p, s := c.Precision, c.Scale
		if p == 0 {
			p, s = 8, 2
		}
		typ = fmt.Sprintf("NUMERIC(%d,%d)", p, s)
	case "json":
		typ = "JSONB"
	case "timestamp":
		typ = "TIMESTAMPTZ"
	default:
		return "", quarry.NewUnsupportedError(adapter.Postgres, "create table", "column type "+c.Type)
	}
	clause := name + " " + typ + sqlbase.ColumnModifiers(c, false)
	if c.Primary {
		clause += " PRIMARY KEY"
	}
	return clause, nil
}
