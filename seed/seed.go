// Package seed runs ordered database seeders, typically after a fresh
// migration run in development.
package seed

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

// Seeder populates one slice of the database. Seeders run in the order
// given and may depend on earlier seeders' data.
type Seeder interface {
	Name() string
	Run(ctx context.Context, a adapter.Adapter) error
}

// Func adapts a plain function into a Seeder.
func Func(name string, fn func(ctx context.Context, a adapter.Adapter) error) Seeder {
	return funcSeeder{name: name, fn: fn}
}

type funcSeeder struct {
	name string
	fn   func(ctx context.Context, a adapter.Adapter) error
}

func (f funcSeeder) Name() string { return f.name }

func (f funcSeeder) Run(ctx context.Context, a adapter.Adapter) error { return f.fn(ctx, a) }

// Runner executes seeders against one adapter.
type Runner struct {
	a   adapter.Adapter
	log zerolog.Logger
}

// NewRunner returns a silent runner; attach a logger with WithLogger.
func NewRunner(a adapter.Adapter, opts ...Option) *Runner {
	r := &Runner{a: a, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// Run executes the seeders sequentially, stopping at the first error.
func (r *Runner) Run(ctx context.Context, seeders ...Seeder) error {
	for _, s := range seeders {
		r.log.Info().Str("seeder", s.Name()).Msg("seeding")
		if err := s.Run(ctx, r.a); err != nil {
			return quarry.NewMutationError(s.Name(), "seed", err)
		}
	}
	return nil
}
