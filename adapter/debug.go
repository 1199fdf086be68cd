package adapter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DebugAdapter wraps an Adapter with structured operation logging and
// running counters. It is transparent: every call delegates to the
// underlying adapter and propagates its result unchanged.
type DebugAdapter struct {
	Adapter
	log zerolog.Logger

	ops    atomic.Int64
	errors atomic.Int64
}

// Debug wraps the given adapter with a zerolog logger.
//
//	a = adapter.Debug(a, log.With().Str("conn", "default").Logger())
func Debug(a Adapter, log zerolog.Logger) *DebugAdapter {
	return &DebugAdapter{Adapter: a, log: log}
}

// Unwrap returns the wrapped adapter, letting callers reach the
// concrete backend through instrumentation layers.
func (d *DebugAdapter) Unwrap() Adapter { return d.Adapter }

// Ops returns the number of operations issued through this wrapper.
func (d *DebugAdapter) Ops() int64 { return d.ops.Load() }

// Errors returns the number of operations that returned an error.
func (d *DebugAdapter) Errors() int64 { return d.errors.Load() }

func (d *DebugAdapter) observe(op, table string, start time.Time, err error) {
	d.ops.Add(1)
	ev := d.log.Debug()
	if err != nil {
		d.errors.Add(1)
		ev = d.log.Error().Err(err)
	}
	ev.Str("backend", d.Adapter.Backend()).
		Str("op", op).
		Str("table", table).
		Dur("duration", time.Since(start)).
		Msg("quarry")
}

// Select implements Adapter.
func (d *DebugAdapter) Select(ctx context.Context, q *Query) ([]Row, error) {
	start := time.Now()
	rows, err := d.Adapter.Select(ctx, q)
	d.observe("select", q.Table, start, err)
	return rows, err
}

// Count implements Adapter.
func (d *DebugAdapter) Count(ctx context.Context, q *Query) (int64, error) {
	start := time.Now()
	n, err := d.Adapter.Count(ctx, q)
	d.observe("count", q.Table, start, err)
	return n, err
}

// Insert implements Adapter.
func (d *DebugAdapter) Insert(ctx context.Context, m *Mutation) (any, error) {
	start := time.Now()
	id, err := d.Adapter.Insert(ctx, m)
	d.observe("insert", m.Table, start, err)
	return id, err
}

// Update implements Adapter.
func (d *DebugAdapter) Update(ctx context.Context, m *Mutation) (int64, error) {
	start := time.Now()
	n, err := d.Adapter.Update(ctx, m)
	d.observe("update", m.Table, start, err)
	return n, err
}

// Delete implements Adapter.
func (d *DebugAdapter) Delete(ctx context.Context, m *Mutation) (int64, error) {
	start := time.Now()
	n, err := d.Adapter.Delete(ctx, m)
	d.observe("delete", m.Table, start, err)
	return n, err
}

// Raw implements Adapter.
func (d *DebugAdapter) Raw(ctx context.Context, query string, args ...any) (any, error) {
	start := time.Now()
	v, err := d.Adapter.Raw(ctx, query, args...)
	d.observe("raw", "", start, err)
	return v, err
}
