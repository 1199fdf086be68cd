// Package query provides the backend-agnostic fluent query builder.
//
// A Builder accumulates clauses against exactly one bound adapter and
// is consumed by a single terminal call (Get, First, Count, Exists,
// Insert, Update, Delete), then discarded. Builders are created per
// logical query, typically through model.Class.Query.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

// Extension is a named power-feature attached to a builder at
// construction time. It receives the builder it was invoked on and can
// reach the bound adapter for raw, backend-specific calls.
type Extension func(ctx context.Context, b *Builder, args ...any) (any, error)

// Builder is a fluent, stateful query over one table or collection.
// It is not safe for concurrent use; Clone before branching.
type Builder struct {
	a       adapter.Adapter
	table   string
	columns []string
	preds   []adapter.Predicate
	joins   []adapter.Join
	orders  []adapter.Order
	limit   int
	offset  int
	pk      string
	with    []string
	exts    map[string]Extension
	cache   quarry.Cache
	ttl     time.Duration
}

// Option configures a Builder at construction.
type Option func(*Builder)

// WithExtensions injects the named extension registry. The map is not
// copied; callers treat it as immutable after construction.
func WithExtensions(exts map[string]Extension) Option {
	return func(b *Builder) { b.exts = exts }
}

// New returns a builder over the given table bound to a.
func New(a adapter.Adapter, table string, opts ...Option) *Builder {
	b := &Builder{a: a, table: table}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Adapter returns the bound adapter. Builders borrow connections, they
// never own them.
func (b *Builder) Adapter() adapter.Adapter { return b.a }

// Table returns the target table or collection name.
func (b *Builder) Table() string { return b.table }

// Clone returns a deep independent copy: mutating the clone never
// affects the original's accumulated clauses.
func (b *Builder) Clone() *Builder {
	nb := *b
	nb.columns = append([]string(nil), b.columns...)
	nb.preds = append([]adapter.Predicate(nil), b.preds...)
	nb.joins = append([]adapter.Join(nil), b.joins...)
	nb.orders = append([]adapter.Order(nil), b.orders...)
	nb.with = append([]string(nil), b.with...)
	return &nb
}

// Select sets the projection.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = columns
	return b
}

// PrimaryKey names the key column whose generated value Insert should
// report. Leave unset for tables without one (e.g. pivot tables).
func (b *Builder) PrimaryKey(name string) *Builder {
	b.pk = name
	return b
}

// where normalizes the (column, args...) forms shared by Where and
// OrWhere: two args are column/op/value, one arg is sugar for equality.
func (b *Builder) where(bool_, column string, args ...any) *Builder {
	p := adapter.Predicate{Column: column, Bool: bool_}
	switch len(args) {
	case 1:
		p.Op, p.Value = "=", args[0]
	case 2:
		op, _ := args[0].(string)
		p.Op, p.Value = strings.ToLower(op), args[1]
	default:
		p.Op = "invalid"
	}
	b.preds = append(b.preds, p)
	return b
}

// Where adds an AND predicate. Where(col, v) is sugar for
// Where(col, "=", v).
func (b *Builder) Where(column string, args ...any) *Builder {
	return b.where(adapter.And, column, args...)
}

// OrWhere adds an OR predicate with the same forms as Where.
func (b *Builder) OrWhere(column string, args ...any) *Builder {
	return b.where(adapter.Or, column, args...)
}

// WhereIn adds an AND membership predicate.
func (b *Builder) WhereIn(column string, values []any) *Builder {
	b.preds = append(b.preds, adapter.Predicate{Column: column, Op: "in", Value: values, Bool: adapter.And})
	return b
}

// WhereNotIn adds an AND negated membership predicate.
func (b *Builder) WhereNotIn(column string, values []any) *Builder {
	b.preds = append(b.preds, adapter.Predicate{Column: column, Op: "not in", Value: values, Bool: adapter.And})
	return b
}

// WhereNull adds an AND IS NULL predicate.
func (b *Builder) WhereNull(column string) *Builder {
	b.preds = append(b.preds, adapter.Predicate{Column: column, Op: "null", Bool: adapter.And})
	return b
}

// WhereNotNull adds an AND IS NOT NULL predicate.
func (b *Builder) WhereNotNull(column string) *Builder {
	b.preds = append(b.preds, adapter.Predicate{Column: column, Op: "not null", Bool: adapter.And})
	return b
}

// parseTableAlias splits "table as alias" (case-insensitive separator).
func parseTableAlias(s string) (table, alias string) {
	fields := strings.Fields(s)
	if len(fields) == 3 && strings.EqualFold(fields[1], "as") {
		return fields[0], fields[2]
	}
	return s, ""
}

func (b *Builder) join(kind, table, local, foreign string) *Builder {
	t, alias := parseTableAlias(table)
	b.joins = append(b.joins, adapter.Join{
		Kind: kind, Table: t, Alias: alias,
		Local: local, Op: "=", Foreign: foreign,
	})
	return b
}

// Join adds an inner join. The table accepts "name as alias" syntax;
// use the alias to qualify columns in subsequent clauses. Relational
// backends only; the document adapter rejects joins.
func (b *Builder) Join(table, local, foreign string) *Builder {
	return b.join("inner", table, local, foreign)
}

// LeftJoin adds a left join with the same syntax as Join.
func (b *Builder) LeftJoin(table, local, foreign string) *Builder {
	return b.join("left", table, local, foreign)
}

// OrderBy appends an ordering term. Direction is "ASC" or "DESC".
func (b *Builder) OrderBy(column, direction string) *Builder {
	b.orders = append(b.orders, adapter.Order{Column: column, Direction: direction})
	return b
}

// Limit caps the number of returned rows.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// With records relation names for the model layer's eager-load pass.
// The builder itself does not resolve them.
func (b *Builder) With(relations ...string) *Builder {
	b.with = append(b.with, relations...)
	return b
}

// WithNames returns the pending eager-load relation names.
func (b *Builder) WithNames() []string { return b.with }

// Descriptor returns the accumulated backend-neutral read descriptor.
func (b *Builder) Descriptor() *adapter.Query {
	return &adapter.Query{
		Table:      b.table,
		Columns:    b.columns,
		Predicates: b.preds,
		Joins:      b.joins,
		Orders:     b.orders,
		Limit:      b.limit,
		Offset:     b.offset,
	}
}

// Remember serves Get from c when possible and stores misses under the
// given ttl. Cached rows round-trip through JSON, so integer values
// come back as float64 unless a model cast reshapes them. Writes
// through this builder invalidate the whole table's cached reads.
func (b *Builder) Remember(c quarry.Cache, ttl time.Duration) *Builder {
	b.cache, b.ttl = c, ttl
	return b
}

func (b *Builder) cacheKey() string {
	return quarry.CacheKey{
		Table:      b.table,
		Operation:  "select",
		Predicates: fmt.Sprint(b.preds, b.joins, b.columns),
		OrderBy:    fmt.Sprint(b.orders),
		Limit:      b.limit,
		Offset:     b.offset,
	}.String()
}

// invalidate drops cached reads for the table after a write. Cache
// errors never fail the write that triggered them.
func (b *Builder) invalidate(ctx context.Context) {
	if b.cache != nil {
		_ = b.cache.DeletePrefix(ctx, b.table+":")
	}
}

// Get materializes all matching rows. A builder with zero accumulated
// predicates is valid and returns every row; guard writes accordingly.
func (b *Builder) Get(ctx context.Context) ([]adapter.Row, error) {
	var key string
	if b.cache != nil {
		key = b.cacheKey()
		if buf, err := b.cache.Get(ctx, key); err == nil && buf != nil {
			var rows []adapter.Row
			if err := json.Unmarshal(buf, &rows); err == nil {
				return rows, nil
			}
		}
	}
	rows, err := b.a.Select(ctx, b.Descriptor())
	if err != nil {
		return nil, quarry.NewQueryError(b.table, "select", err)
	}
	if b.cache != nil {
		if buf, err := json.Marshal(rows); err == nil {
			_ = b.cache.Set(ctx, key, buf, b.ttl)
		}
	}
	return rows, nil
}

// First returns the first matching row, or nil when nothing matched.
func (b *Builder) First(ctx context.Context) (adapter.Row, error) {
	rows, err := b.Clone().Limit(1).Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Pluck returns the values of a single column for all matching rows.
func (b *Builder) Pluck(ctx context.Context, column string) ([]any, error) {
	rows, err := b.Clone().Select(column).Get(ctx)
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(rows))
	for i, row := range rows {
		vals[i] = row[column]
	}
	return vals, nil
}

// Count returns the number of matching rows without fetching them.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	n, err := b.a.Count(ctx, b.Descriptor())
	if err != nil {
		return 0, quarry.NewQueryError(b.table, "count", err)
	}
	return n, nil
}

// Exists reports whether at least one row matches, short-circuiting
// with LIMIT 1 instead of a full count.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	n, err := b.a.Count(ctx, b.Clone().Limit(1).Descriptor())
	if err != nil {
		return false, quarry.NewQueryError(b.table, "exists", err)
	}
	return n > 0, nil
}

// Insert writes one row and returns the generated key, when the
// builder has a primary key set and the backend generates one.
func (b *Builder) Insert(ctx context.Context, values adapter.Row) (any, error) {
	id, err := b.a.Insert(ctx, &adapter.Mutation{
		Table:      b.table,
		Values:     values,
		PrimaryKey: b.pk,
	})
	if err != nil {
		return nil, quarry.NewMutationError(b.table, "insert", err)
	}
	b.invalidate(ctx)
	return id, nil
}

// Update writes values to every matching row and returns the affected
// count. With zero predicates it updates the whole table by contract,
// not by accident: callers add predicates first.
func (b *Builder) Update(ctx context.Context, values adapter.Row) (int64, error) {
	n, err := b.a.Update(ctx, &adapter.Mutation{
		Table:      b.table,
		Values:     values,
		Predicates: b.preds,
	})
	if err != nil {
		return 0, quarry.NewMutationError(b.table, "update", err)
	}
	b.invalidate(ctx)
	return n, nil
}

// Delete removes every matching row and returns the affected count.
func (b *Builder) Delete(ctx context.Context) (int64, error) {
	n, err := b.a.Delete(ctx, &adapter.Mutation{
		Table:      b.table,
		Predicates: b.preds,
	})
	if err != nil {
		return 0, quarry.NewMutationError(b.table, "delete", err)
	}
	b.invalidate(ctx)
	return n, nil
}

// Extend invokes a named extension from the builder's registry.
// Unknown names fail with a ConfigError: extension sets are explicit
// per-builder state, never shared process-wide.
func (b *Builder) Extend(ctx context.Context, name string, args ...any) (any, error) {
	ext, ok := b.exts[name]
	if !ok {
		return nil, quarry.NewConfigError("unknown query extension %q", name)
	}
	return ext(ctx, b, args...)
}

// HasExtension reports whether a named extension is registered on this
// builder.
func (b *Builder) HasExtension(name string) bool {
	_, ok := b.exts[name]
	return ok
}
