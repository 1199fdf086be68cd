package sqlbase

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

// DefaultSQL renders a DEFAULT clause literal. Shared by the dialect
// ColumnSQL implementations; backslashEscapes follows the dialect's
// string-literal rules.
func DefaultSQL(v any, backslashEscapes bool) string {
	switch x := v.(type) {
	case string:
		return "'" + escapeStringValue(x, backslashEscapes) + "'"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case nil:
		return "NULL"
	default:
		return fmt.Sprint(x)
	}
}

func (d *Dialect) createTableSQL(def *adapter.TableDef) ([]string, error) {
	if len(def.Columns) == 0 {
		return nil, quarry.NewConfigError("%s: create table %s with no columns", d.Name, def.Name)
	}
	table, err := d.quoteIdent(def.Name)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(def.Columns))
	for _, c := range def.Columns {
		clause, err := d.ColumnSQL(c, d.quoteIdent)
		if err != nil {
			return nil, err
		}
		cols = append(cols, clause)
	}
	stmts := []string{
		"CREATE TABLE " + table + " (" + strings.Join(cols, ", ") + ")",
	}
	idx, err := d.indexSQL(def.Name, def.Indexes)
	if err != nil {
		return nil, err
	}
	return append(stmts, idx...), nil
}

func (d *Dialect) alterTableSQL(def *adapter.TableDef) ([]string, error) {
	table, err := d.quoteIdent(def.Name)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for _, c := range def.Columns {
		clause, err := d.ColumnSQL(c, d.quoteIdent)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, "ALTER TABLE "+table+" ADD COLUMN "+clause)
	}
	idx, err := d.indexSQL(def.Name, def.Indexes)
	if err != nil {
		return nil, err
	}
	return append(stmts, idx...), nil
}

func (d *Dialect) indexSQL(table string, indexes []adapter.IndexDef) ([]string, error) {
	qtable, err := d.quoteIdent(table)
	if err != nil {
		return nil, err
	}
	var stmts []string
	for _, idx := range indexes {
		name := idx.Name
		if name == "" {
			name = table + "_" + strings.Join(idx.Columns, "_") + "_idx"
		}
		qname, err := d.quoteIdent(name)
		if err != nil {
			return nil, err
		}
		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			if cols[i], err = d.quoteIdent(c); err != nil {
				return nil, err
			}
		}
		kind := "INDEX"
		if idx.Unique {
			kind = "UNIQUE INDEX"
		}
		stmts = append(stmts, "CREATE "+kind+" "+qname+" ON "+qtable+" ("+strings.Join(cols, ", ")+")")
	}
	return stmts, nil
}

// ColumnModifiers renders the clause tail shared by every SQL engine:
// nullability, default and uniqueness. Auto-increment and primary-key
// rendering stay dialect-specific, as does backslashEscapes for string
// defaults.
func ColumnModifiers(c adapter.ColumnDef, backslashEscapes bool) string {
	var sb strings.Builder
	if c.Nullable {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	if c.HasDefault {
		sb.WriteString(" DEFAULT " + DefaultSQL(c.Default, backslashEscapes))
	}
	if c.Unique {
		sb.WriteString(" UNIQUE")
	}
	return sb.String()
}
