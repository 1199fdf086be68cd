package model

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/query"
)

// Class binds a Definition to one adapter and is the entry point for
// all persistence operations on that entity. The adapter is always
// passed in explicitly; there is no process-wide default connection.
type Class struct {
	def  *Definition
	a    adapter.Adapter
	exts map[string]query.Extension
}

// ClassOption configures a Class at construction.
type ClassOption func(*Class)

// WithExtensions propagates a query-extension registry to every
// builder the class creates.
func WithExtensions(exts map[string]query.Extension) ClassOption {
	return func(c *Class) { c.exts = exts }
}

// NewClass binds def to the given adapter.
func NewClass(def *Definition, a adapter.Adapter, opts ...ClassOption) *Class {
	c := &Class{def: def, a: a}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Definition returns the bound definition.
func (c *Class) Definition() *Definition { return c.def }

// Adapter returns the bound adapter.
func (c *Class) Adapter() adapter.Adapter { return c.a }

// builder returns a fresh query builder over the entity's table.
func (c *Class) builder() *query.Builder {
	return query.New(c.a, c.def.TableName(), query.WithExtensions(c.exts))
}

// Query starts a fluent entity query.
func (c *Class) Query() *Query {
	return &Query{class: c, b: c.builder()}
}

// With starts a query with eager-load relations declared up front.
func (c *Class) With(relations ...string) *Query {
	return c.Query().With(relations...)
}

// All returns every row as hydrated instances.
func (c *Class) All(ctx context.Context) ([]*Instance, error) {
	return c.Query().Get(ctx)
}

// Find returns the instance with the given primary key, or nil when no
// row matches.
func (c *Class) Find(ctx context.Context, id any) (*Instance, error) {
	return c.Query().Where(c.def.Key(), id).First(ctx)
}

// FindOrFail is Find that fails with a NotFoundError on a miss.
func (c *Class) FindOrFail(ctx context.Context, id any) (*Instance, error) {
	inst, err := c.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, quarry.NewNotFoundError(c.def.TableName(), id)
	}
	return inst, nil
}

// New returns an unsaved instance mass-assigned from attrs. Attributes
// outside the fillable list are dropped silently.
func (c *Class) New(attrs adapter.Row) *Instance {
	inst := &Instance{class: c, attrs: adapter.Row{}}
	return inst.Fill(attrs)
}

// Create mass-assigns attrs and persists the new row, returning the
// hydrated instance with its key populated.
func (c *Class) Create(ctx context.Context, attrs adapter.Row) (*Instance, error) {
	inst := c.New(attrs)
	if err := inst.Save(ctx); err != nil {
		return nil, err
	}
	return inst, nil
}

// hydrate converts a raw row into an instance, decoding casts.
func (c *Class) hydrate(row adapter.Row) (*Instance, error) {
	attrs := make(adapter.Row, len(row))
	for k, v := range row {
		if cast, ok := c.def.Casts[k]; ok {
			decoded, err := decodeCast(cast, v)
			if err != nil {
				return nil, err
			}
			attrs[k] = decoded
			continue
		}
		attrs[k] = v
	}
	return &Instance{class: c, attrs: attrs, exists: true}, nil
}

// hydrateAll converts rows into instances.
func (c *Class) hydrateAll(rows []adapter.Row) ([]*Instance, error) {
	out := make([]*Instance, len(rows))
	for i, row := range rows {
		inst, err := c.hydrate(row)
		if err != nil {
			return nil, err
		}
		out[i] = inst
	}
	return out, nil
}

// encodeAttrs converts semantic attribute values into storage form.
func (c *Class) encodeAttrs(attrs adapter.Row) (adapter.Row, error) {
	out := make(adapter.Row, len(attrs))
	for k, v := range attrs {
		if cast, ok := c.def.Casts[k]; ok {
			encoded, err := encodeCast(cast, v)
			if err != nil {
				return nil, err
			}
			out[k] = encoded
			continue
		}
		out[k] = v
	}
	return out, nil
}

// touch stamps timestamp columns ahead of a write.
func (c *Class) touch(attrs adapter.Row, creating bool) {
	if !c.def.Timestamps {
		return
	}
	now := time.Now().UTC()
	if creating {
		if _, ok := attrs["created_at"]; !ok {
			attrs["created_at"] = now
		}
	}
	attrs["updated_at"] = now
}

// assignKey gives UUID-keyed entities a client-side key before insert.
func (c *Class) assignKey(attrs adapter.Row) {
	if !c.def.UUIDKey {
		return
	}
	if v, ok := attrs[c.def.Key()]; !ok || v == nil || v == "" {
		attrs[c.def.Key()] = uuid.NewString()
	}
}
