// Package schema provides the fluent table blueprint used by
// migrations. A blueprint callback declares columns and indexes; the
// resulting description is handed to the bound adapter, which renders
// it in its own DDL or collection vocabulary.
package schema

import (
	"context"

	"github.com/quarrydb/quarry/adapter"
)

// Schema executes blueprint operations against one adapter.
type Schema struct {
	a adapter.Adapter
}

// New returns a Schema bound to a.
func New(a adapter.Adapter) *Schema {
	return &Schema{a: a}
}

// Adapter returns the bound adapter.
func (s *Schema) Adapter() adapter.Adapter { return s.a }

// Create declares and creates a new table.
func (s *Schema) Create(ctx context.Context, table string, fn func(*Blueprint)) error {
	bp := &Blueprint{def: adapter.TableDef{Name: table}}
	fn(bp)
	return s.a.CreateTable(ctx, &bp.def)
}

// Table declares additions to an existing table. Only additive changes
// are supported: new columns and new indexes.
func (s *Schema) Table(ctx context.Context, table string, fn func(*Blueprint)) error {
	bp := &Blueprint{def: adapter.TableDef{Name: table}}
	fn(bp)
	return s.a.AlterTable(ctx, &bp.def)
}

// Drop removes a table. Dropping a missing table is not an error.
func (s *Schema) Drop(ctx context.Context, table string) error {
	return s.a.DropTable(ctx, table)
}

// HasTable reports whether the table exists.
func (s *Schema) HasTable(ctx context.Context, table string) (bool, error) {
	return s.a.HasTable(ctx, table)
}

// HasColumn reports whether the column exists on the table.
func (s *Schema) HasColumn(ctx context.Context, table, column string) (bool, error) {
	return s.a.HasColumn(ctx, table, column)
}

// Blueprint accumulates a table description through chained column
// declarations.
type Blueprint struct {
	def adapter.TableDef
}

func (b *Blueprint) column(c adapter.ColumnDef) *Column {
	b.def.Columns = append(b.def.Columns, c)
	return &Column{def: &b.def.Columns[len(b.def.Columns)-1]}
}

// Increments adds an auto-incrementing integer primary key.
func (b *Blueprint) Increments(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "increments", Primary: true, AutoIncrement: true})
}

// BigIncrements adds an auto-incrementing 64-bit primary key.
func (b *Blueprint) BigIncrements(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "bigincrements", Primary: true, AutoIncrement: true})
}

// UUID adds a column sized for canonical UUID strings.
func (b *Blueprint) UUID(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "uuid"})
}

// String adds a bounded varchar column. Length defaults to 255.
func (b *Blueprint) String(name string, length ...int) *Column {
	c := adapter.ColumnDef{Name: name, Type: "string"}
	if len(length) > 0 {
		c.Length = length[0]
	}
	return b.column(c)
}

// Text adds an unbounded text column.
func (b *Blueprint) Text(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "text"})
}

// Integer adds a 32-bit integer column.
func (b *Blueprint) Integer(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "integer"})
}

// BigInteger adds a 64-bit integer column.
func (b *Blueprint) BigInteger(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "biginteger"})
}

// Boolean adds a boolean column.
func (b *Blueprint) Boolean(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "boolean"})
}

// Float adds a double-precision column.
func (b *Blueprint) Float(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "float"})
}

// Decimal adds an exact numeric column with the given precision and
// scale.
func (b *Blueprint) Decimal(name string, precision, scale int) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "decimal", Precision: precision, Scale: scale})
}

// JSON adds a column for structured documents, mapped to the backend's
// native JSON type where one exists.
func (b *Blueprint) JSON(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "json"})
}

// Timestamp adds a date-time column.
func (b *Blueprint) Timestamp(name string) *Column {
	return b.column(adapter.ColumnDef{Name: name, Type: "timestamp"})
}

// Timestamps adds the nullable created_at and updated_at pair.
func (b *Blueprint) Timestamps() {
	b.Timestamp("created_at").Nullable()
	b.Timestamp("updated_at").Nullable()
}

// Index declares a secondary index over the given columns.
func (b *Blueprint) Index(columns ...string) {
	b.def.Indexes = append(b.def.Indexes, adapter.IndexDef{Columns: columns})
}

// Unique declares a unique index over the given columns.
func (b *Blueprint) Unique(columns ...string) {
	b.def.Indexes = append(b.def.Indexes, adapter.IndexDef{Columns: columns, Unique: true})
}

// Column chains modifiers onto the column it was returned for.
type Column struct {
	def *adapter.ColumnDef
}

// Nullable allows NULL values.
func (c *Column) Nullable() *Column {
	c.def.Nullable = true
	return c
}

// Default sets the column default.
func (c *Column) Default(v any) *Column {
	c.def.Default = v
	c.def.HasDefault = true
	return c
}

// Unique adds a single-column unique constraint.
func (c *Column) Unique() *Column {
	c.def.Unique = true
	return c
}

// Primary marks the column as the primary key.
func (c *Column) Primary() *Column {
	c.def.Primary = true
	return c
}
