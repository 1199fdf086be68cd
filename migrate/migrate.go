// Package migrate tracks and applies schema migrations. Applied
// migrations are recorded in a bookkeeping table together with a batch
// number; one Up run is one batch, and Rollback undoes exactly the
// latest batch.
package migrate

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/query"
	"github.com/quarrydb/quarry/schema"
)

// DefaultTable is the bookkeeping table name.
const DefaultTable = "migrations"

// nameRe enforces "<14-digit timestamp>_<snake_case_label>", which
// keeps lexical and chronological order identical.
var nameRe = regexp.MustCompile(`^\d{14}_[a-z0-9_]+$`)

// Migration is one reversible schema change. Up and Down receive a
// Schema bound to the runner's adapter.
type Migration struct {
	// Name is "<14-digit timestamp>_<label>", e.g.
	// "20240101120000_create_users".
	Name string
	Up   func(ctx context.Context, s *schema.Schema) error
	Down func(ctx context.Context, s *schema.Schema) error
}

// Status describes one known migration's applied state.
type Status struct {
	Name    string
	Applied bool
	Batch   int64
}

// Runner applies registered migrations against one adapter. Runs are
// strictly sequential; the runner is not safe for concurrent use.
type Runner struct {
	a          adapter.Adapter
	s          *schema.Schema
	table      string
	log        zerolog.Logger
	migrations []*Migration
}

// Option configures a Runner.
type Option func(*Runner)

// WithTable overrides the bookkeeping table name.
func WithTable(name string) Option {
	return func(r *Runner) { r.table = name }
}

// WithLogger attaches a logger; by default the runner is silent.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// NewRunner returns a runner bound to a.
func NewRunner(a adapter.Adapter, opts ...Option) *Runner {
	r := &Runner{
		a:     a,
		s:     schema.New(a),
		table: DefaultTable,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds migrations to the runner's known set, kept sorted by
// name. Bad or duplicate names fail with a ConfigError.
func (r *Runner) Register(migrations ...*Migration) error {
	for _, m := range migrations {
		if !nameRe.MatchString(m.Name) {
			return quarry.NewConfigError("migrate: invalid migration name %q", m.Name)
		}
		for _, known := range r.migrations {
			if known.Name == m.Name {
				return quarry.NewConfigError("migrate: duplicate migration %q", m.Name)
			}
		}
		r.migrations = append(r.migrations, m)
	}
	sort.Slice(r.migrations, func(i, j int) bool {
		return r.migrations[i].Name < r.migrations[j].Name
	})
	return nil
}

// ensureTable creates the bookkeeping table on first use.
func (r *Runner) ensureTable(ctx context.Context) error {
	ok, err := r.s.HasTable(ctx, r.table)
	if err != nil || ok {
		return err
	}
	return r.s.Create(ctx, r.table, func(b *schema.Blueprint) {
		b.Increments("id")
		b.String("migration").Unique()
		b.Integer("batch")
		b.Timestamp("executed_at").Nullable()
	})
}

// record is one applied-migration row.
type record struct {
	name  string
	batch int64
}

// applied returns the recorded migrations keyed by name, plus the
// highest batch number.
func (r *Runner) applied(ctx context.Context) (map[string]record, int64, error) {
	rows, err := query.New(r.a, r.table).Get(ctx)
	if err != nil {
		return nil, 0, err
	}
	out := make(map[string]record, len(rows))
	var max int64
	for _, row := range rows {
		rec := record{
			name:  toString(row["migration"]),
			batch: toInt64(row["batch"]),
		}
		out[rec.name] = rec
		if rec.batch > max {
			max = rec.batch
		}
	}
	return out, max, nil
}

// Up applies every pending migration in name order as one new batch
// and returns the applied names. A failure stops the run; migrations
// already applied in this run stay recorded.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, maxBatch, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	batch := maxBatch + 1
	var ran []string
	for _, m := range r.migrations {
		if _, ok := done[m.Name]; ok {
			continue
		}
		r.log.Info().Str("migration", m.Name).Int64("batch", batch).Msg("migrating")
		if err := m.Up(ctx, r.s); err != nil {
			return ran, quarry.NewMutationError(r.table, "migrate "+m.Name, err)
		}
		_, err := query.New(r.a, r.table).Insert(ctx, adapter.Row{
			"migration":   m.Name,
			"batch":       batch,
			"executed_at": time.Now().UTC(),
		})
		if err != nil {
			return ran, err
		}
		ran = append(ran, m.Name)
	}
	return ran, nil
}

// Rollback reverts the latest batch in reverse name order and returns
// the reverted names. With nothing applied it is a no-op.
func (r *Runner) Rollback(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, maxBatch, err := r.applied(ctx)
	if err != nil || maxBatch == 0 {
		return nil, err
	}
	return r.revert(ctx, func(rec record) bool { return rec.batch == maxBatch }, done)
}

// Reset reverts every applied migration, newest first.
func (r *Runner) Reset(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, _, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	return r.revert(ctx, func(record) bool { return true }, done)
}

// revert runs Down for every known migration whose record matches,
// newest first, deleting each record as it goes.
func (r *Runner) revert(ctx context.Context, match func(record) bool, done map[string]record) ([]string, error) {
	var reverted []string
	for i := len(r.migrations) - 1; i >= 0; i-- {
		m := r.migrations[i]
		rec, ok := done[m.Name]
		if !ok || !match(rec) {
			continue
		}
		r.log.Info().Str("migration", m.Name).Msg("rolling back")
		if err := m.Down(ctx, r.s); err != nil {
			return reverted, quarry.NewMutationError(r.table, "rollback "+m.Name, err)
		}
		if _, err := query.New(r.a, r.table).Where("migration", m.Name).Delete(ctx); err != nil {
			return reverted, err
		}
		reverted = append(reverted, m.Name)
	}
	return reverted, nil
}

// Fresh drops every table in the database, then applies all
// migrations as batch 1. It is destructive and intended for
// development databases.
func (r *Runner) Fresh(ctx context.Context) ([]string, error) {
	tables, err := r.a.Tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		r.log.Info().Str("table", table).Msg("dropping")
		if err := r.s.Drop(ctx, table); err != nil {
			return nil, err
		}
	}
	return r.Up(ctx)
}

// Status reports every known migration in name order with its applied
// state and batch.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, _, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, len(r.migrations))
	for i, m := range r.migrations {
		st := Status{Name: m.Name}
		if rec, ok := done[m.Name]; ok {
			st.Applied, st.Batch = true, rec.batch
		}
		out[i] = st
	}
	return out, nil
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
