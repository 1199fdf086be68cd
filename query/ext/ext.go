// Package ext ships ready-made query extensions for backend-specific
// verbs that have no portable descriptor form. Attach them per builder
// with query.WithExtensions; builders without them reject the names
// with a ConfigError.
package ext

import (
	"context"
	"fmt"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/adapter/mongo"
	"github.com/quarrydb/quarry/query"
)

// Names under which the shipped extensions are conventionally
// registered.
const (
	MongoAggregateName = "aggregate"
	SearchName         = "search"
)

// MongoAggregate runs an aggregation pipeline against the builder's
// collection. The single argument is the pipeline (a []any of stage
// documents). Only valid on builders bound to the document adapter.
func MongoAggregate(ctx context.Context, b *query.Builder, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, quarry.NewConfigError("aggregate extension takes exactly one pipeline argument, got %d", len(args))
	}
	ma, ok := unwrap(b.Adapter()).(*mongo.Adapter)
	if !ok {
		return nil, quarry.NewUnsupportedError(b.Adapter().Backend(), "aggregate", "aggregation pipelines")
	}
	rows, err := ma.Aggregate(ctx, b.Table(), args[0])
	if err != nil {
		return nil, quarry.NewQueryError(b.Table(), "aggregate", err)
	}
	return rows, nil
}

// Search performs a Postgres full-text search over one column. The
// arguments are the column name and the search term; it returns the
// matching rows ranked by relevance.
func Search(ctx context.Context, b *query.Builder, args ...any) (any, error) {
	if len(args) != 2 {
		return nil, quarry.NewConfigError("search extension takes column and term arguments, got %d", len(args))
	}
	column, ok := args[0].(string)
	if !ok {
		return nil, quarry.NewConfigError("search extension column must be a string")
	}
	term := fmt.Sprint(args[1])
	if b.Adapter().Backend() != adapter.Postgres {
		return nil, quarry.NewUnsupportedError(b.Adapter().Backend(), "search", "full-text search")
	}
	if err := adapter.ValidateIdent(column); err != nil {
		return nil, err
	}
	if err := adapter.ValidateIdent(b.Table()); err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf(
		`SELECT * FROM %q WHERE to_tsvector('simple', %q) @@ plainto_tsquery('simple', $1) `+
			`ORDER BY ts_rank(to_tsvector('simple', %q), plainto_tsquery('simple', $1)) DESC`,
		b.Table(), column, column,
	)
	res, err := b.Adapter().Raw(ctx, stmt, term)
	if err != nil {
		return nil, quarry.NewQueryError(b.Table(), "search", err)
	}
	rows, _ := res.([]adapter.Row)
	return rows, nil
}

// unwrap peels instrumentation wrappers so extensions can reach the
// concrete backend adapter.
func unwrap(a adapter.Adapter) adapter.Adapter {
	for {
		u, ok := a.(interface{ Unwrap() adapter.Adapter })
		if !ok {
			return a
		}
		a = u.Unwrap()
	}
}
