// Package model provides the entity layer on top of the query builder:
// declarative definitions, hydrated instances, attribute casting and
// the relation subsystem with lazy and eager loading.
package model

import (
	"github.com/go-openapi/inflect"

	"github.com/quarrydb/quarry"
)

// Kind enumerates the supported relation shapes.
type Kind int

const (
	// HasOne links a parent to at most one child row holding the
	// parent's key in a foreign key column.
	HasOne Kind = iota + 1
	// HasMany links a parent to any number of such child rows.
	HasMany
	// BelongsTo is the inverse: the parent row holds the foreign key
	// pointing at the owning row.
	BelongsTo
	// BelongsToMany links both sides through a pivot table carrying a
	// key pair per association.
	BelongsToMany
)

func (k Kind) String() string {
	switch k {
	case HasOne:
		return "hasOne"
	case HasMany:
		return "hasMany"
	case BelongsTo:
		return "belongsTo"
	case BelongsToMany:
		return "belongsToMany"
	}
	return "unknown"
}

// Relation declares one named association on a Definition. Zero-value
// key fields are resolved by convention at access time.
type Relation struct {
	Kind   Kind
	Target *Definition

	// ForeignKey is the column holding the owning side's key: on the
	// target table for HasOne/HasMany, on this table for BelongsTo.
	// Default: singular owner table name + "_id".
	ForeignKey string

	// LocalKey is the key column the foreign key refers to. Default:
	// the owner's primary key.
	LocalKey string

	// Pivot names the join table for BelongsToMany. Default: the two
	// singular table names, sorted, joined with "_".
	Pivot string

	// PivotLocal and PivotForeign are the pivot columns pointing at
	// this table and the target table. Defaults: singular table name
	// + "_id" on each side.
	PivotLocal   string
	PivotForeign string
}

// Definition is the declarative description of one entity: its table,
// key, mass-assignment policy, serialization rules, attribute casts
// and relations. Definitions are immutable after construction and safe
// to share across goroutines.
type Definition struct {
	// Name is the singular entity name, e.g. "User". Used to derive
	// the table name when Table is empty.
	Name string

	// Table overrides the derived table or collection name.
	Table string

	// PrimaryKey defaults to "id".
	PrimaryKey string

	// UUIDKey makes Create assign a client-side UUID when the key is
	// absent, instead of relying on a backend-generated value.
	UUIDKey bool

	// Fillable whitelists mass-assignable attributes. Empty means
	// every attribute is fillable.
	Fillable []string

	// Hidden lists attributes excluded from serialized output.
	Hidden []string

	// Casts maps attribute names to cast names: "json", "bool", "int",
	// "float", "string", "time" or "msgpack".
	Casts map[string]string

	// Timestamps maintains created_at/updated_at on writes.
	Timestamps bool

	// Relations declares the entity's associations by name. Accessing
	// an undeclared relation is a ConfigError, never a silent miss.
	Relations map[string]Relation
}

// TableName returns the explicit table name, or the pluralized
// snake-case form of Name ("BlogPost" -> "blog_posts").
func (d *Definition) TableName() string {
	if d.Table != "" {
		return d.Table
	}
	return inflect.Pluralize(inflect.Underscore(d.Name))
}

// Key returns the primary key column, defaulting to "id".
func (d *Definition) Key() string {
	if d.PrimaryKey != "" {
		return d.PrimaryKey
	}
	return "id"
}

// fillable reports whether name may be mass-assigned.
func (d *Definition) fillable(name string) bool {
	if len(d.Fillable) == 0 {
		return true
	}
	for _, f := range d.Fillable {
		if f == name {
			return true
		}
	}
	return false
}

// hidden reports whether name is excluded from serialization.
func (d *Definition) hidden(name string) bool {
	for _, h := range d.Hidden {
		if h == name {
			return true
		}
	}
	return false
}

// relation resolves a declared relation with convention defaults
// applied, or fails with a ConfigError for unknown names.
func (d *Definition) relation(name string) (Relation, error) {
	rel, ok := d.Relations[name]
	if !ok {
		return Relation{}, quarry.NewConfigError("%s: undeclared relation %q", d.TableName(), name)
	}
	if rel.Target == nil {
		return Relation{}, quarry.NewConfigError("%s: relation %q has no target", d.TableName(), name)
	}
	switch rel.Kind {
	case HasOne, HasMany:
		if rel.ForeignKey == "" {
			rel.ForeignKey = foreignKeyFor(d)
		}
		if rel.LocalKey == "" {
			rel.LocalKey = d.Key()
		}
	case BelongsTo:
		if rel.ForeignKey == "" {
			rel.ForeignKey = foreignKeyFor(rel.Target)
		}
		if rel.LocalKey == "" {
			rel.LocalKey = rel.Target.Key()
		}
	case BelongsToMany:
		if rel.PivotLocal == "" {
			rel.PivotLocal = foreignKeyFor(d)
		}
		if rel.PivotForeign == "" {
			rel.PivotForeign = foreignKeyFor(rel.Target)
		}
		if rel.Pivot == "" {
			rel.Pivot = pivotName(d, rel.Target)
		}
	default:
		return Relation{}, quarry.NewConfigError("%s: relation %q has invalid kind", d.TableName(), name)
	}
	return rel, nil
}

// foreignKeyFor derives the conventional foreign key column for a
// definition: singular table name + "_id".
func foreignKeyFor(d *Definition) string {
	return inflect.Singularize(d.TableName()) + "_id"
}

// pivotName derives the conventional pivot table: both singular table
// names in lexical order, underscore-joined ("post_tag").
func pivotName(a, b *Definition) string {
	x := inflect.Singularize(a.TableName())
	y := inflect.Singularize(b.TableName())
	if x > y {
		x, y = y, x
	}
	return x + "_" + y
}
