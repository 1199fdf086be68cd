package model

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/query"
)

// normalizeKey maps a key value to its dictionary form so that values
// that differ only in driver representation match: int64(1), int32(1),
// float64(1), "1" and []byte("1") all normalize to "1". Keys that are
// semantically distinct but stringify identically would collide; key
// columns hold scalars, where this cannot happen.
func normalizeKey(v any) string {
	switch k := v.(type) {
	case nil:
		return ""
	case string:
		return k
	case []byte:
		return string(k)
	case int:
		return strconv.FormatInt(int64(k), 10)
	case int8:
		return strconv.FormatInt(int64(k), 10)
	case int16:
		return strconv.FormatInt(int64(k), 10)
	case int32:
		return strconv.FormatInt(int64(k), 10)
	case int64:
		return strconv.FormatInt(k, 10)
	case uint:
		return strconv.FormatUint(uint64(k), 10)
	case uint32:
		return strconv.FormatUint(uint64(k), 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	case float32:
		return strconv.FormatFloat(float64(k), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(k)
	case time.Time:
		return k.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprint(k)
	}
}

// keysOf collects the distinct non-nil values of one attribute across
// instances, preserving first-seen order.
func keysOf(instances []*Instance, attr string) []any {
	seen := map[string]struct{}{}
	var keys []any
	for _, inst := range instances {
		v := inst.Get(attr)
		if v == nil {
			continue
		}
		norm := normalizeKey(v)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// eagerLoad resolves the named relations for all instances, one
// relation per goroutine. Each relation costs a constant number of
// queries regardless of the parent count.
func (c *Class) eagerLoad(ctx context.Context, names []string, instances []*Instance) error {
	if len(names) == 0 || len(instances) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			return c.loadRelation(gctx, name, instances)
		})
	}
	return g.Wait()
}

// loadRelation fetches one declared relation for the given parents and
// attaches the matched results via SetRelation.
func (c *Class) loadRelation(ctx context.Context, name string, parents []*Instance) error {
	rel, err := c.def.relation(name)
	if err != nil {
		return err
	}
	switch rel.Kind {
	case HasOne, HasMany:
		return c.loadHas(ctx, name, rel, parents)
	case BelongsTo:
		return c.loadBelongsTo(ctx, name, rel, parents)
	case BelongsToMany:
		return c.loadBelongsToMany(ctx, name, rel, parents)
	}
	return quarry.NewConfigError("%s: relation %q has invalid kind", c.def.TableName(), name)
}

// loadHas resolves hasOne and hasMany: one query fetching all children
// whose foreign key is among the parents' local keys, then a
// dictionary match on normalized keys.
func (c *Class) loadHas(ctx context.Context, name string, rel Relation, parents []*Instance) error {
	target := NewClass(rel.Target, c.a, WithExtensions(c.exts))
	keys := keysOf(parents, rel.LocalKey)
	var children []*Instance
	if len(keys) > 0 {
		var err error
		children, err = target.Query().WhereIn(rel.ForeignKey, keys).Get(ctx)
		if err != nil {
			return err
		}
	}

	dict := map[string][]*Instance{}
	for _, child := range children {
		k := normalizeKey(child.Get(rel.ForeignKey))
		dict[k] = append(dict[k], child)
	}
	for _, parent := range parents {
		matched := dict[normalizeKey(parent.Get(rel.LocalKey))]
		if rel.Kind == HasOne {
			if len(matched) == 0 {
				parent.SetRelation(name, (*Instance)(nil))
			} else {
				parent.SetRelation(name, matched[0])
			}
			continue
		}
		if matched == nil {
			matched = []*Instance{}
		}
		parent.SetRelation(name, matched)
	}
	return nil
}

// loadBelongsTo resolves the inverse side: fetch the owners whose key
// is among the parents' foreign key values.
func (c *Class) loadBelongsTo(ctx context.Context, name string, rel Relation, parents []*Instance) error {
	target := NewClass(rel.Target, c.a, WithExtensions(c.exts))
	keys := keysOf(parents, rel.ForeignKey)
	var owners []*Instance
	if len(keys) > 0 {
		var err error
		owners, err = target.Query().WhereIn(rel.LocalKey, keys).Get(ctx)
		if err != nil {
			return err
		}
	}

	dict := make(map[string]*Instance, len(owners))
	for _, owner := range owners {
		dict[normalizeKey(owner.Get(rel.LocalKey))] = owner
	}
	for _, parent := range parents {
		fk := parent.Get(rel.ForeignKey)
		if fk == nil {
			parent.SetRelation(name, (*Instance)(nil))
			continue
		}
		owner, ok := dict[normalizeKey(fk)]
		if !ok {
			parent.SetRelation(name, (*Instance)(nil))
			continue
		}
		parent.SetRelation(name, owner)
	}
	return nil
}

// loadBelongsToMany resolves pivot relations in two queries: the pivot
// rows for all parents, then the related rows for all referenced keys.
// Each attached instance is a copy carrying its pivot row, so the same
// related row linked to several parents keeps per-association pivot
// attributes.
func (c *Class) loadBelongsToMany(ctx context.Context, name string, rel Relation, parents []*Instance) error {
	target := NewClass(rel.Target, c.a, WithExtensions(c.exts))
	parentKeys := keysOf(parents, c.def.Key())

	var pivotRows []adapter.Row
	if len(parentKeys) > 0 {
		var err error
		pivotRows, err = query.New(c.a, rel.Pivot, query.WithExtensions(c.exts)).
			WhereIn(rel.PivotLocal, parentKeys).
			Get(ctx)
		if err != nil {
			return err
		}
	}

	seen := map[string]struct{}{}
	var relatedKeys []any
	for _, row := range pivotRows {
		v := row[rel.PivotForeign]
		if v == nil {
			continue
		}
		norm := normalizeKey(v)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		relatedKeys = append(relatedKeys, v)
	}

	var related []*Instance
	if len(relatedKeys) > 0 {
		var err error
		related, err = target.Query().WhereIn(rel.Target.Key(), relatedKeys).Get(ctx)
		if err != nil {
			return err
		}
	}
	relatedDict := make(map[string]*Instance, len(related))
	for _, inst := range related {
		relatedDict[normalizeKey(inst.Get(rel.Target.Key()))] = inst
	}

	matched := map[string][]*Instance{}
	for _, row := range pivotRows {
		inst, ok := relatedDict[normalizeKey(row[rel.PivotForeign])]
		if !ok {
			continue
		}
		attached := inst.withPivot(row)
		pk := normalizeKey(row[rel.PivotLocal])
		matched[pk] = append(matched[pk], attached)
	}
	for _, parent := range parents {
		list := matched[normalizeKey(parent.Get(c.def.Key()))]
		if list == nil {
			list = []*Instance{}
		}
		parent.SetRelation(name, list)
	}
	return nil
}

// withPivot returns a copy of the instance carrying the given pivot
// row. The attribute bag is copied so associations stay independent.
func (i *Instance) withPivot(pivot adapter.Row) *Instance {
	return &Instance{
		class:  i.class,
		attrs:  i.Attributes(),
		exists: i.exists,
		Pivot:  pivot,
	}
}
