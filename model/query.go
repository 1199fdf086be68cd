package model

import (
	"context"

	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/query"
)

// Query is the entity-aware fluent query: it delegates clause building
// to the underlying builder and adds hydration and eager loading on
// materialization.
type Query struct {
	class *Class
	b     *query.Builder
}

// Builder exposes the underlying row-level builder.
func (q *Query) Builder() *query.Builder { return q.b }

// Where adds an AND predicate; Where(col, v) is equality sugar.
func (q *Query) Where(column string, args ...any) *Query {
	q.b.Where(column, args...)
	return q
}

// OrWhere adds an OR predicate.
func (q *Query) OrWhere(column string, args ...any) *Query {
	q.b.OrWhere(column, args...)
	return q
}

// WhereIn adds an AND membership predicate.
func (q *Query) WhereIn(column string, values []any) *Query {
	q.b.WhereIn(column, values)
	return q
}

// WhereNull adds an AND IS NULL predicate.
func (q *Query) WhereNull(column string) *Query {
	q.b.WhereNull(column)
	return q
}

// WhereNotNull adds an AND IS NOT NULL predicate.
func (q *Query) WhereNotNull(column string) *Query {
	q.b.WhereNotNull(column)
	return q
}

// OrderBy appends an ordering term.
func (q *Query) OrderBy(column, direction string) *Query {
	q.b.OrderBy(column, direction)
	return q
}

// Limit caps the result size.
func (q *Query) Limit(n int) *Query {
	q.b.Limit(n)
	return q
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	q.b.Offset(n)
	return q
}

// Select narrows the projection. Keep the keys relations match on in
// the projection when combining with With.
func (q *Query) Select(columns ...string) *Query {
	q.b.Select(columns...)
	return q
}

// With queues relations for eager loading on Get/First.
func (q *Query) With(relations ...string) *Query {
	q.b.With(relations...)
	return q
}

// Get materializes matching rows as hydrated instances and resolves
// queued eager loads.
func (q *Query) Get(ctx context.Context) ([]*Instance, error) {
	rows, err := q.b.Get(ctx)
	if err != nil {
		return nil, err
	}
	instances, err := q.class.hydrateAll(rows)
	if err != nil {
		return nil, err
	}
	if err := q.class.eagerLoad(ctx, q.b.WithNames(), instances); err != nil {
		return nil, err
	}
	return instances, nil
}

// First returns the first matching instance, or nil when none match.
func (q *Query) First(ctx context.Context) (*Instance, error) {
	q.b.Limit(1)
	instances, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, nil
	}
	return instances[0], nil
}

// Count returns the number of matching rows.
func (q *Query) Count(ctx context.Context) (int64, error) {
	return q.b.Count(ctx)
}

// Exists reports whether any row matches.
func (q *Query) Exists(ctx context.Context) (bool, error) {
	return q.b.Exists(ctx)
}

// Pluck returns a single column across all matching rows.
func (q *Query) Pluck(ctx context.Context, column string) ([]any, error) {
	return q.b.Pluck(ctx, column)
}

// Update writes attrs (cast-encoded) to every matching row.
func (q *Query) Update(ctx context.Context, attrs adapter.Row) (int64, error) {
	encoded, err := q.class.encodeAttrs(attrs)
	if err != nil {
		return 0, err
	}
	q.class.touch(encoded, false)
	return q.b.Update(ctx, encoded)
}

// Delete removes every matching row.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	return q.b.Delete(ctx)
}
