package model

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

// Instance is one hydrated entity row: an attribute bag plus loaded
// relations. Attribute values are semantic (casts applied); encoding
// back to storage form happens on write.
type Instance struct {
	class  *Class
	attrs  adapter.Row
	exists bool

	// Pivot carries the join-table attributes when the instance was
	// loaded through a belongsToMany relation, keyed under "pivot" in
	// serialized output.
	Pivot adapter.Row

	mu        sync.Mutex
	relations map[string]any
}

// Class returns the instance's class.
func (i *Instance) Class() *Class { return i.class }

// Exists reports whether the instance is backed by a stored row.
func (i *Instance) Exists() bool { return i.exists }

// Get returns an attribute value, nil when absent.
func (i *Instance) Get(name string) any { return i.attrs[name] }

// ID returns the primary key value.
func (i *Instance) ID() any { return i.attrs[i.class.def.Key()] }

// Set writes an attribute directly, bypassing the fillable whitelist.
func (i *Instance) Set(name string, v any) *Instance {
	i.attrs[name] = v
	return i
}

// Attributes returns a copy of the attribute bag.
func (i *Instance) Attributes() adapter.Row {
	out := make(adapter.Row, len(i.attrs))
	for k, v := range i.attrs {
		out[k] = v
	}
	return out
}

// Fill mass-assigns attrs, silently dropping attributes outside the
// fillable whitelist.
func (i *Instance) Fill(attrs adapter.Row) *Instance {
	for k, v := range attrs {
		if i.class.def.fillable(k) {
			i.attrs[k] = v
		}
	}
	return i
}

// Save persists the instance: an insert for new instances, an update
// of the current attributes otherwise. On insert the generated (or
// client-assigned) key is written back into the attribute bag.
func (i *Instance) Save(ctx context.Context) error {
	def := i.class.def
	if i.exists {
		i.class.touch(i.attrs, false)
		values := make(adapter.Row, len(i.attrs))
		for k, v := range i.attrs {
			if k == def.Key() {
				continue
			}
			values[k] = v
		}
		encoded, err := i.class.encodeAttrs(values)
		if err != nil {
			return err
		}
		_, err = i.class.builder().Where(def.Key(), i.ID()).Update(ctx, encoded)
		return err
	}

	i.class.assignKey(i.attrs)
	i.class.touch(i.attrs, true)
	encoded, err := i.class.encodeAttrs(i.attrs)
	if err != nil {
		return err
	}
	id, err := i.class.builder().PrimaryKey(def.Key()).Insert(ctx, encoded)
	if err != nil {
		return err
	}
	if id != nil {
		i.attrs[def.Key()] = id
	}
	i.exists = true
	return nil
}

// Update mass-assigns attrs through the fillable whitelist and saves.
func (i *Instance) Update(ctx context.Context, attrs adapter.Row) error {
	return i.Fill(attrs).Save(ctx)
}

// Delete removes the backing row. Deleting an unsaved instance is a
// no-op.
func (i *Instance) Delete(ctx context.Context) error {
	if !i.exists {
		return nil
	}
	_, err := i.class.builder().Where(i.class.def.Key(), i.ID()).Delete(ctx)
	if err != nil {
		return err
	}
	i.exists = false
	return nil
}

// Fresh re-reads the backing row and returns a new instance, or a
// NotFoundError when the row is gone.
func (i *Instance) Fresh(ctx context.Context) (*Instance, error) {
	return i.class.FindOrFail(ctx, i.ID())
}

// Related lazily loads a declared relation, caching the result. The
// return value is *Instance for hasOne/belongsTo and []*Instance for
// hasMany/belongsToMany. Undeclared names fail with a ConfigError.
func (i *Instance) Related(ctx context.Context, name string) (any, error) {
	i.mu.Lock()
	if v, ok := i.relations[name]; ok {
		i.mu.Unlock()
		return v, nil
	}
	i.mu.Unlock()
	if err := i.class.loadRelation(ctx, name, []*Instance{i}); err != nil {
		return nil, err
	}
	v, _ := i.Relation(name)
	return v, nil
}

// Relation returns an already-loaded relation value without touching
// the database.
func (i *Instance) Relation(name string) (any, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.relations[name]
	return v, ok
}

// SetRelation stores a loaded relation value. Used by the eager
// loader; callable directly for precomputed associations.
func (i *Instance) SetRelation(name string, v any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.relations == nil {
		i.relations = map[string]any{}
	}
	i.relations[name] = v
}

// serializable returns the JSON-facing view: hidden attributes
// removed, loaded relations and pivot attributes folded in.
func (i *Instance) serializable() map[string]any {
	def := i.class.def
	out := make(map[string]any, len(i.attrs))
	for k, v := range i.attrs {
		if def.hidden(k) {
			continue
		}
		out[k] = v
	}
	if len(i.Pivot) > 0 {
		out["pivot"] = i.Pivot
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for name, rel := range i.relations {
		switch related := rel.(type) {
		case *Instance:
			if related == nil {
				out[name] = nil
			} else {
				out[name] = related.serializable()
			}
		case []*Instance:
			items := make([]map[string]any, len(related))
			for idx, inst := range related {
				items[idx] = inst.serializable()
			}
			out[name] = items
		default:
			out[name] = rel
		}
	}
	return out
}

// ToJSON serializes the instance with hidden attributes excluded and
// loaded relations nested.
func (i *Instance) ToJSON() ([]byte, error) {
	raw, err := json.Marshal(i.serializable())
	if err != nil {
		return nil, quarry.NewConfigError("%s: serialize: %v", i.class.def.TableName(), err)
	}
	return raw, nil
}
