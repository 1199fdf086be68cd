// Package adapter defines the pluggable backend contract that unifies
// relational engines and document stores behind one set of
// backend-neutral descriptors.
//
// An Adapter owns exactly one connection (or pool) and implements CRUD
// primitives over Query and Mutation descriptors, transaction control,
// schema operations driven by TableDef, and a Raw escape hatch for
// backend-specific features below the abstraction.
//
// Concrete implementations live in the sub-packages mysql, postgres,
// sqlite and mongo, and register themselves with the package registry
// so that Open can construct them from a Config.
package adapter

import "context"

// Backend type tags. Each registered adapter identifies itself by one
// of these (or its own tag, for third-party backends).
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite"
	Mongo    = "mongodb"
)

// Boolean joins between successive predicates.
const (
	And = "and"
	Or  = "or"
)

// Row is a backend-neutral record: a mapping of field name to value.
// The document adapter guarantees a synthetic "id" field mirroring the
// native identifier on every row it returns.
type Row map[string]any

// Predicate is one filter in a query, joined to the previous predicate
// by Bool. The order of predicates is significant and must be preserved
// by every backend translation.
type Predicate struct {
	Column string
	Op     string // "=", "!=", "<", "<=", ">", ">=", "like", "in", "not in", "null", "not null"
	Value  any
	Bool   string // And or Or
}

// Order is one ordering term.
type Order struct {
	Column    string
	Direction string // "ASC" or "DESC"
}

// Join describes a relational join. Document backends reject queries
// carrying joins with an UnsupportedError.
type Join struct {
	Kind    string // "inner" or "left"
	Table   string
	Alias   string // optional, parsed from "table as alias"
	Local   string
	Op      string
	Foreign string
}

// Query is the backend-neutral read descriptor accumulated by the query
// builder and handed to Select or Count.
type Query struct {
	Table      string
	Columns    []string // projection; empty means all
	Predicates []Predicate
	Joins      []Join
	Orders     []Order
	Limit      int // <= 0 means no limit
	Offset     int // <= 0 means no offset
}

// Mutation is the backend-neutral write descriptor for Insert, Update
// and Delete. PrimaryKey names the key column whose generated value
// Insert reports; it defaults to "id" when empty.
type Mutation struct {
	Table      string
	Values     Row
	Predicates []Predicate
	PrimaryKey string
}

// ColumnDef describes one column inside a TableDef.
type ColumnDef struct {
	Name          string
	Type          string // "increments", "bigincrements", "uuid", "string", "text", "integer", "biginteger", "boolean", "float", "decimal", "json", "timestamp"
	Length        int    // for "string"
	Precision     int    // for "decimal"
	Scale         int    // for "decimal"
	Nullable      bool
	Default       any
	HasDefault    bool
	Unique        bool
	Primary       bool
	AutoIncrement bool
}

// IndexDef describes a secondary index.
type IndexDef struct {
	Name    string
	Columns []string
	Unique  bool
}

// TableDef is the backend-neutral table description produced by the
// schema blueprint. For AlterTable, Columns and Indexes hold only the
// additions.
type TableDef struct {
	Name    string
	Columns []ColumnDef
	Indexes []IndexDef
}

// Adapter is the uniform backend contract. Implementations must either
// support every method or fail loudly with an UnsupportedError, never
// return silently wrong data.
//
// No two adapters share a connection. Close is idempotent and
// invalidates all pending operations: they fail, they do not hang.
type Adapter interface {
	// Connect establishes the connection described by the adapter's
	// Config. It fails with a ConnectionError on unreachable hosts, bad
	// credentials or unsupported config combinations.
	Connect(ctx context.Context) error

	// Close releases the connection. Calling it twice is not an error.
	Close() error

	// Backend returns the backend type tag, e.g. "mysql".
	Backend() string

	// Select returns all rows matching the query descriptor.
	Select(ctx context.Context, q *Query) ([]Row, error)

	// Count returns the number of matching rows without fetching them.
	Count(ctx context.Context, q *Query) (int64, error)

	// Insert writes one row and returns the generated primary key value,
	// or the caller-provided one when the backend does not generate keys.
	Insert(ctx context.Context, m *Mutation) (any, error)

	// Update writes m.Values to every row matching m.Predicates and
	// returns the number of affected rows. An empty predicate list
	// matches all rows.
	Update(ctx context.Context, m *Mutation) (int64, error)

	// Delete removes every row matching m.Predicates and returns the
	// number of affected rows. An empty predicate list matches all rows.
	Delete(ctx context.Context, m *Mutation) (int64, error)

	// Begin, Commit and Rollback control the adapter's transaction
	// state. Relational adapters nest via savepoints; backends without
	// transaction support return an UnsupportedError from Begin and
	// never simulate one.
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Raw executes a native query below the abstraction and returns the
	// driver's response: rows for reads, an affected count for writes,
	// or a backend-specific value (e.g. aggregation pipeline output).
	Raw(ctx context.Context, query string, args ...any) (any, error)

	// Schema operations, driven by the blueprint DSL.
	CreateTable(ctx context.Context, def *TableDef) error
	AlterTable(ctx context.Context, def *TableDef) error
	DropTable(ctx context.Context, table string) error
	HasTable(ctx context.Context, table string) (bool, error)
	HasColumn(ctx context.Context, table, column string) (bool, error)

	// Tables lists all user tables or collections in the database.
	Tables(ctx context.Context) ([]string, error)
}
