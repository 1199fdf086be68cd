package sqlbase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

func isValidIdentifier(s string) bool {
	return adapter.ValidateIdent(s) == nil
}

// escapeStringValue escapes a string literal for DDL defaults by
// doubling single quotes. Engines where backslash is an escape
// character (MySQL) double it as well; standard-conforming engines
// must not, or a literal backslash in the default is corrupted.
func escapeStringValue(s string, backslashEscapes bool) string {
	if backslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return strings.ReplaceAll(s, "'", "''")
}

// operators maps the backend-neutral comparison operators to SQL.
// "in", "not in", "null" and "not null" are compiled structurally.
var operators = map[string]string{
	"=":  "=",
	"!=": "<>",
	"<>": "<>",
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",

	"like":     "LIKE",
	"not like": "NOT LIKE",
}

// writer accumulates a statement and its bind arguments, numbering
// placeholders in the dialect's style.
type writer struct {
	d    *Dialect
	sb   strings.Builder
	args []any
}

func (w *writer) str(s string) { w.sb.WriteString(s) }

func (w *writer) arg(v any) {
	w.args = append(w.args, v)
	w.sb.WriteString(w.d.Placeholder(len(w.args)))
}

// QuoteIdent quotes a validated, possibly dot-qualified identifier in
// the dialect's style.
func (d *Dialect) QuoteIdent(name string) (string, error) {
	return d.quoteIdent(name)
}

// quoteIdent quotes a possibly dot-qualified identifier, rejecting
// anything that fails validation. This is the injection guard for every
// name that cannot be bound as a parameter.
func (d *Dialect) quoteIdent(name string) (string, error) {
	if !isValidIdentifier(name) {
		return "", quarry.NewConfigError("%s: invalid identifier %q", d.Name, name)
	}
	q := string(d.Quote)
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + p + q
	}
	return strings.Join(parts, "."), nil
}

// quoteColumn quotes a projection term. "*" and expression terms
// (anything containing parentheses) pass through unquoted.
func (d *Dialect) quoteColumn(col string) (string, error) {
	if col == "*" || strings.ContainsAny(col, "() ") {
		return col, nil
	}
	return d.quoteIdent(col)
}

func (d *Dialect) compileSelect(q *adapter.Query, count bool) (string, []any, error) {
	// A bounded count wraps the row query so the limit is honored:
	// SELECT COUNT(*) FROM (... LIMIT n) lets Exists stop at one row.
	if count && (q.Limit > 0 || q.Offset > 0) {
		inner, args, err := d.compileSelect(q, false)
		if err != nil {
			return "", nil, err
		}
		alias, err := d.quoteIdent("quarry_count")
		if err != nil {
			return "", nil, err
		}
		return "SELECT COUNT(*) FROM (" + inner + ") AS " + alias, args, nil
	}
	w := &writer{d: d}
	w.str("SELECT ")
	switch {
	case count:
		w.str("COUNT(*)")
	case len(q.Columns) == 0:
		w.str("*")
	default:
		for i, col := range q.Columns {
			if i > 0 {
				w.str(", ")
			}
			c, err := d.quoteColumn(col)
			if err != nil {
				return "", nil, err
			}
			w.str(c)
		}
	}
	table, err := d.quoteIdent(q.Table)
	if err != nil {
		return "", nil, err
	}
	w.str(" FROM " + table)
	for _, j := range q.Joins {
		if err := d.compileJoin(w, j); err != nil {
			return "", nil, err
		}
	}
	if err := d.compileWhere(w, q.Predicates); err != nil {
		return "", nil, err
	}
	if !count {
		for i, o := range q.Orders {
			if i == 0 {
				w.str(" ORDER BY ")
			} else {
				w.str(", ")
			}
			col, err := d.quoteIdent(o.Column)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if strings.EqualFold(o.Direction, "desc") {
				dir = "DESC"
			}
			w.str(col + " " + dir)
		}
		switch {
		case q.Limit > 0:
			w.str(fmt.Sprintf(" LIMIT %d", q.Limit))
		case q.Offset > 0 && d.NoLimit != "":
			// MySQL and SQLite require a LIMIT clause before OFFSET.
			w.str(" LIMIT " + d.NoLimit)
		}
		if q.Offset > 0 {
			w.str(fmt.Sprintf(" OFFSET %d", q.Offset))
		}
	}
	return w.sb.String(), w.args, nil
}

func (d *Dialect) compileJoin(w *writer, j adapter.Join) error {
	switch j.Kind {
	case "inner", "":
		w.str(" JOIN ")
	case "left":
		w.str(" LEFT JOIN ")
	default:
		return quarry.NewUnsupportedError(d.Name, "select", j.Kind+" join")
	}
	table, err := d.quoteIdent(j.Table)
	if err != nil {
		return err
	}
	w.str(table)
	if j.Alias != "" {
		alias, err := d.quoteIdent(j.Alias)
		if err != nil {
			return err
		}
		w.str(" AS " + alias)
	}
	local, err := d.quoteIdent(j.Local)
	if err != nil {
		return err
	}
	foreign, err := d.quoteIdent(j.Foreign)
	if err != nil {
		return err
	}
	op := j.Op
	if op == "" {
		op = "="
	}
	if _, ok := operators[op]; !ok {
		return quarry.NewUnsupportedError(d.Name, "select", "join operator "+op)
	}
	w.str(" ON " + local + " " + operators[op] + " " + foreign)
	return nil
}

// compileWhere renders the predicate list in call order, so AND/OR
// precedence reflects exactly what the caller accumulated.
func (d *Dialect) compileWhere(w *writer, preds []adapter.Predicate) error {
	for i, p := range preds {
		switch {
		case i == 0:
			w.str(" WHERE ")
		case p.Bool == adapter.Or:
			w.str(" OR ")
		default:
			w.str(" AND ")
		}
		if err := d.compilePredicate(w, p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dialect) compilePredicate(w *writer, p adapter.Predicate) error {
	col, err := d.quoteIdent(p.Column)
	if err != nil {
		return err
	}
	op := strings.ToLower(p.Op)
	switch op {
	case "in", "not in":
		vals, ok := p.Value.([]any)
		if !ok {
			return quarry.NewConfigError("%s: %q predicate on %s requires a slice value, got %T", d.Name, op, p.Column, p.Value)
		}
		if len(vals) == 0 {
			// An empty IN matches nothing; an empty NOT IN matches everything.
			if op == "in" {
				w.str("1 = 0")
			} else {
				w.str("1 = 1")
			}
			return nil
		}
		w.str(col)
		if op == "in" {
			w.str(" IN (")
		} else {
			w.str(" NOT IN (")
		}
		for i, v := range vals {
			if i > 0 {
				w.str(", ")
			}
			w.arg(v)
		}
		w.str(")")
	case "null":
		w.str(col + " IS NULL")
	case "not null":
		w.str(col + " IS NOT NULL")
	default:
		sqlOp, ok := operators[op]
		if !ok {
			return quarry.NewUnsupportedError(d.Name, "select", "operator "+p.Op)
		}
		w.str(col + " " + sqlOp + " ")
		w.arg(p.Value)
	}
	return nil
}

// sortedColumns returns the value columns in deterministic order.
func sortedColumns(values adapter.Row) []string {
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func (d *Dialect) compileInsert(m *adapter.Mutation, returning bool) (string, []any, error) {
	if len(m.Values) == 0 {
		return "", nil, quarry.NewConfigError("%s: insert into %s with no values", d.Name, m.Table)
	}
	w := &writer{d: d}
	table, err := d.quoteIdent(m.Table)
	if err != nil {
		return "", nil, err
	}
	cols := sortedColumns(m.Values)
	w.str("INSERT INTO " + table + " (")
	for i, col := range cols {
		if i > 0 {
			w.str(", ")
		}
		c, err := d.quoteIdent(col)
		if err != nil {
			return "", nil, err
		}
		w.str(c)
	}
	w.str(") VALUES (")
	for i, col := range cols {
		if i > 0 {
			w.str(", ")
		}
		w.arg(m.Values[col])
	}
	w.str(")")
	if returning {
		pk, err := d.quoteIdent(m.PrimaryKey)
		if err != nil {
			return "", nil, err
		}
		w.str(" RETURNING " + pk)
	}
	return w.sb.String(), w.args, nil
}

func (d *Dialect) compileUpdate(m *adapter.Mutation) (string, []any, error) {
	if len(m.Values) == 0 {
		return "", nil, quarry.NewConfigError("%s: update %s with no values", d.Name, m.Table)
	}
	w := &writer{d: d}
	table, err := d.quoteIdent(m.Table)
	if err != nil {
		return "", nil, err
	}
	w.str("UPDATE " + table + " SET ")
	for i, col := range sortedColumns(m.Values) {
		if i > 0 {
			w.str(", ")
		}
		c, err := d.quoteIdent(col)
		if err != nil {
			return "", nil, err
		}
		w.str(c + " = ")
		w.arg(m.Values[col])
	}
	if err := d.compileWhere(w, m.Predicates); err != nil {
		return "", nil, err
	}
	return w.sb.String(), w.args, nil
}

func (d *Dialect) compileDelete(m *adapter.Mutation) (string, []any, error) {
	w := &writer{d: d}
	table, err := d.quoteIdent(m.Table)
	if err != nil {
		return "", nil, err
	}
	w.str("DELETE FROM " + table)
	if err := d.compileWhere(w, m.Predicates); err != nil {
		return "", nil, err
	}
	return w.sb.String(), w.args, nil
}
