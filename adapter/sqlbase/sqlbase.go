// Package sqlbase implements the adapter contract for database/sql
// backends. The concrete mysql, postgres and sqlite adapters configure
// a Dialect and a DSN builder; the connection lifecycle,
// savepoint-nested transactions, predicate compilation, row scanning
// and DDL rendering are shared here.
package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

// DSNFunc builds the driver name and data source name for a Config.
type DSNFunc func(adapter.Config) (driverName, dsn string, err error)

// Dialect carries the per-engine differences consumed by the shared
// compiler and the schema operations.
type Dialect struct {
	// Name is the backend type tag, e.g. "mysql".
	Name string

	// Quote is the identifier quote character: '`' or '"'.
	Quote byte

	// Placeholder renders the n-th (1-based) bind placeholder.
	Placeholder func(n int) string

	// ReturningID reports whether INSERT supports a RETURNING clause for
	// fetching the generated key (PostgreSQL). Engines without it use
	// LastInsertId.
	ReturningID bool

	// NoLimit is the literal that stands in for a missing LIMIT when an
	// OFFSET is present, on engines whose grammar requires LIMIT before
	// OFFSET ("-1" for SQLite, "18446744073709551615" for MySQL). Empty
	// means the engine accepts a bare OFFSET.
	NoLimit string

	// BackslashEscapes reports whether string literals treat backslash
	// as an escape character (MySQL), so DDL defaults double it.
	BackslashEscapes bool

	// ColumnSQL renders a full column clause for CREATE/ALTER TABLE.
	ColumnSQL func(c adapter.ColumnDef, quote func(string) (string, error)) (string, error)

	// HasTableQuery, HasColumnQuery and TablesQuery are engine-specific
	// catalog queries. HasTableQuery binds the table name,
	// HasColumnQuery the table and column names.
	HasTableQuery  string
	HasColumnQuery string
	TablesQuery    string

	// IsConstraint reports whether a driver error is a constraint
	// violation, so it can be surfaced as a ConstraintError.
	IsConstraint func(error) bool
}

// Question renders the "?" placeholder style (MySQL, SQLite).
func Question(int) string { return "?" }

// Dollar renders the "$n" placeholder style (PostgreSQL).
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Base is a relational adapter over database/sql. It is not safe for
// concurrent use while a transaction is open: transaction state is
// connection-scoped, matching the one-connection-per-adapter model.
type Base struct {
	dialect *Dialect
	cfg     adapter.Config
	dsn     DSNFunc

	mu    sync.Mutex
	db    *sql.DB
	tx    *sql.Tx
	depth int
}

// New returns an unconnected Base for the given dialect and config.
func New(d *Dialect, cfg adapter.Config, dsn DSNFunc) *Base {
	return &Base{dialect: d, cfg: cfg, dsn: dsn}
}

// Backend implements adapter.Adapter.
func (b *Base) Backend() string { return b.dialect.Name }

// Config returns the adapter's connection config.
func (b *Base) Config() adapter.Config { return b.cfg }

// DB exposes the underlying pool for tests and raw integrations.
func (b *Base) DB() *sql.DB {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db
}

// UseDB installs an existing pool, bypassing Connect. Used by tests to
// inject sqlmock connections.
func (b *Base) UseDB(db *sql.DB) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.db = db
}

// Connect implements adapter.Adapter. Connecting an already-connected
// adapter is a no-op.
func (b *Base) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db != nil {
		return nil
	}
	driverName, dsn, err := b.dsn(b.cfg)
	if err != nil {
		return err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return quarry.NewConnectionError(b.dialect.Name, err)
	}
	if b.cfg.Pool.Max > 0 {
		db.SetMaxOpenConns(b.cfg.Pool.Max)
	}
	if b.cfg.Pool.Min > 0 {
		db.SetMaxIdleConns(b.cfg.Pool.Min)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return quarry.NewConnectionError(b.dialect.Name, err)
	}
	b.db = db
	return nil
}

// Close implements adapter.Adapter. It is idempotent; pending
// operations on the closed pool fail instead of hanging.
func (b *Base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db, b.tx, b.depth = nil, nil, 0
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the active transaction if one is open, else the pool.
func (b *Base) conn() (execer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tx != nil {
		return b.tx, nil
	}
	if b.db == nil {
		return nil, quarry.NewConnectionError(b.dialect.Name, sql.ErrConnDone)
	}
	return b.db, nil
}

// Select implements adapter.Adapter.
func (b *Base) Select(ctx context.Context, q *adapter.Query) ([]adapter.Row, error) {
	stmt, args, err := b.dialect.compileSelect(q, false)
	if err != nil {
		return nil, err
	}
	c, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := c.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// Count implements adapter.Adapter.
func (b *Base) Count(ctx context.Context, q *adapter.Query) (int64, error) {
	stmt, args, err := b.dialect.compileSelect(q, true)
	if err != nil {
		return 0, err
	}
	c, err := b.conn()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := c.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Insert implements adapter.Adapter.
func (b *Base) Insert(ctx context.Context, m *adapter.Mutation) (any, error) {
	// Caller-provided keys (e.g. uuid) are reported back as-is.
	if m.PrimaryKey != "" {
		if v, ok := m.Values[m.PrimaryKey]; ok && v != nil {
			if err := b.insertExec(ctx, m, false, nil); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	returning := m.PrimaryKey != "" && b.dialect.ReturningID
	var id any
	if err := b.insertExec(ctx, m, returning, &id); err != nil {
		return nil, err
	}
	return id, nil
}

func (b *Base) insertExec(ctx context.Context, m *adapter.Mutation, returning bool, id *any) error {
	stmt, args, err := b.dialect.compileInsert(m, returning)
	if err != nil {
		return err
	}
	c, err := b.conn()
	if err != nil {
		return err
	}
	if returning {
		if err := c.QueryRowContext(ctx, stmt, args...).Scan(id); err != nil {
			return b.mapWriteErr(m.Table, err)
		}
		return nil
	}
	res, err := c.ExecContext(ctx, stmt, args...)
	if err != nil {
		return b.mapWriteErr(m.Table, err)
	}
	if id != nil && m.PrimaryKey != "" {
		// LastInsertId is unsupported on some engines and meaningless
		// for tables without an auto key; report nil in those cases.
		if v, err := res.LastInsertId(); err == nil && v != 0 {
			*id = v
		}
	}
	return nil
}

// Update implements adapter.Adapter. An empty predicate list updates
// every row; that is deliberate and must be guarded by the caller.
func (b *Base) Update(ctx context.Context, m *adapter.Mutation) (int64, error) {
	stmt, args, err := b.dialect.compileUpdate(m)
	if err != nil {
		return 0, err
	}
	return b.execAffected(ctx, m.Table, stmt, args)
}

// Delete implements adapter.Adapter.
func (b *Base) Delete(ctx context.Context, m *adapter.Mutation) (int64, error) {
	stmt, args, err := b.dialect.compileDelete(m)
	if err != nil {
		return 0, err
	}
	return b.execAffected(ctx, m.Table, stmt, args)
}

func (b *Base) execAffected(ctx context.Context, table, stmt string, args []any) (int64, error) {
	c, err := b.conn()
	if err != nil {
		return 0, err
	}
	res, err := c.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, b.mapWriteErr(table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *Base) mapWriteErr(table string, err error) error {
	if b.dialect.IsConstraint != nil && b.dialect.IsConstraint(err) {
		return quarry.NewConstraintError(table, err)
	}
	return err
}

// Begin implements adapter.Adapter. Nested calls create savepoints.
func (b *Base) Begin(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return quarry.NewConnectionError(b.dialect.Name, sql.ErrConnDone)
	}
	if b.tx == nil {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		b.tx, b.depth = tx, 1
		return nil
	}
	b.depth++
	_, err := b.tx.ExecContext(ctx, "SAVEPOINT "+b.savepoint(b.depth))
	if err != nil {
		b.depth--
	}
	return err
}

// Commit implements adapter.Adapter.
func (b *Base) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.tx == nil:
		return fmt.Errorf("sqlbase: commit outside transaction")
	case b.depth > 1:
		_, err := b.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+b.savepoint(b.depth))
		if err != nil {
			return err
		}
		b.depth--
		return nil
	default:
		err := b.tx.Commit()
		b.tx, b.depth = nil, 0
		return err
	}
}

// Rollback implements adapter.Adapter.
func (b *Base) Rollback(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.tx == nil:
		return fmt.Errorf("sqlbase: rollback outside transaction")
	case b.depth > 1:
		_, err := b.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+b.savepoint(b.depth))
		if err != nil {
			return err
		}
		b.depth--
		return nil
	default:
		err := b.tx.Rollback()
		b.tx, b.depth = nil, 0
		return err
	}
}

func (b *Base) savepoint(depth int) string {
	return "quarry_sp_" + strconv.Itoa(depth)
}

// Raw implements adapter.Adapter. Read statements return []adapter.Row;
// write statements return the affected row count.
func (b *Base) Raw(ctx context.Context, query string, args ...any) (any, error) {
	c, err := b.conn()
	if err != nil {
		return nil, err
	}
	if isReadStatement(query) {
		rows, err := c.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanRows(rows)
	}
	res, err := c.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return int64(0), nil
	}
	return n, nil
}

func isReadStatement(query string) bool {
	head := strings.ToUpper(strings.Fields(strings.TrimSpace(query) + " ")[0])
	switch head {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "DESCRIBE":
		return true
	}
	return false
}

// HasTable implements adapter.Adapter.
func (b *Base) HasTable(ctx context.Context, table string) (bool, error) {
	return b.existsQuery(ctx, b.dialect.HasTableQuery, table)
}

// HasColumn implements adapter.Adapter.
func (b *Base) HasColumn(ctx context.Context, table, column string) (bool, error) {
	return b.existsQuery(ctx, b.dialect.HasColumnQuery, table, column)
}

func (b *Base) existsQuery(ctx context.Context, query string, args ...any) (bool, error) {
	c, err := b.conn()
	if err != nil {
		return false, err
	}
	var n int64
	if err := c.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Tables implements adapter.Adapter.
func (b *Base) Tables(ctx context.Context) ([]string, error) {
	c, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := c.QueryContext(ctx, b.dialect.TablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreateTable implements adapter.Adapter.
func (b *Base) CreateTable(ctx context.Context, def *adapter.TableDef) error {
	stmts, err := b.dialect.createTableSQL(def)
	if err != nil {
		return err
	}
	return b.execAll(ctx, stmts)
}

// AlterTable implements adapter.Adapter. def carries only the additions.
func (b *Base) AlterTable(ctx context.Context, def *adapter.TableDef) error {
	stmts, err := b.dialect.alterTableSQL(def)
	if err != nil {
		return err
	}
	return b.execAll(ctx, stmts)
}

// DropTable implements adapter.Adapter.
func (b *Base) DropTable(ctx context.Context, table string) error {
	name, err := b.dialect.quoteIdent(table)
	if err != nil {
		return err
	}
	return b.execAll(ctx, []string{"DROP TABLE IF EXISTS " + name})
}

func (b *Base) execAll(ctx context.Context, stmts []string) error {
	c, err := b.conn()
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := c.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlbase: %s: %w", stmt, err)
		}
	}
	return nil
}

// scanRows materializes *sql.Rows into backend-neutral rows. []byte
// values are converted to string so that text columns compare equal
// across drivers.
func scanRows(rows *sql.Rows) ([]adapter.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []adapter.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(adapter.Row, len(cols))
		for i, col := range cols {
			if bs, ok := vals[i].([]byte); ok {
				row[col] = string(bs)
			} else {
				row[col] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var _ adapter.Adapter = (*Base)(nil)
