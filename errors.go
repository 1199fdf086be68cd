package quarry

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("quarry: record not found")

	// ErrConnection is returned when a backend cannot be reached or
	// refuses the configured credentials.
	ErrConnection = errors.New("quarry: connection failed")

	// ErrUnsupported is returned when an operator or feature is not
	// expressible on the bound backend.
	ErrUnsupported = errors.New("quarry: unsupported operation")

	// ErrConfig is returned for invalid configuration: unknown backend
	// type, missing adapter registration, undeclared relation access.
	ErrConfig = errors.New("quarry: invalid configuration")
)

// ConnectionError reports a failure to establish or keep a backend
// connection. It is fatal to the operation and never retried at this layer.
type ConnectionError struct {
	Backend string // backend type, e.g. "mysql", "mongodb"
	Err     error  // underlying driver error
}

// Error returns the error string.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("quarry: %s: connection failed: %v", e.Backend, e.Err)
}

// Is reports whether the target error matches ConnectionError.
func (e *ConnectionError) Is(err error) bool { return err == ErrConnection }

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError returns a new ConnectionError for the given backend.
func NewConnectionError(backend string, err error) *ConnectionError {
	return &ConnectionError{Backend: backend, Err: err}
}

// IsConnection returns true if the error is a ConnectionError.
func IsConnection(err error) bool {
	if err == nil {
		return false
	}
	var e *ConnectionError
	return errors.As(err, &e) || errors.Is(err, ErrConnection)
}

// UnsupportedError reports an operator or feature that the bound backend
// cannot express. It is surfaced immediately, never silently approximated.
type UnsupportedError struct {
	Backend string // backend type
	Op      string // operation attempted, e.g. "select", "begin"
	Feature string // offending operator or feature, e.g. "join", "ilike"
}

// Error returns the error string.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("quarry: %s: %s: unsupported %s", e.Backend, e.Op, e.Feature)
}

// Is reports whether the target error matches UnsupportedError.
func (e *UnsupportedError) Is(err error) bool { return err == ErrUnsupported }

// NewUnsupportedError returns a new UnsupportedError.
func NewUnsupportedError(backend, op, feature string) *UnsupportedError {
	return &UnsupportedError{Backend: backend, Op: op, Feature: feature}
}

// IsUnsupported returns true if the error is an UnsupportedError.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupported)
}

// NotFoundError is returned by singular lookups when a fail variant was
// requested and no record matched.
type NotFoundError struct {
	Label string // entity label, usually the table or collection name
	ID    any    // the key that was searched for, if known
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("quarry: %s not found (id=%v)", e.Label, e.ID)
	}
	return fmt.Sprintf("quarry: %s not found", e.Label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// NewNotFoundError returns a new NotFoundError for the given entity label.
func NewNotFoundError(label string, id any) *NotFoundError {
	return &NotFoundError{Label: label, ID: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConfigError reports invalid configuration detected at setup or at the
// first use of a misdeclared component.
type ConfigError struct {
	Reason string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("quarry: invalid configuration: %s", e.Reason)
}

// Is reports whether the target error matches ConfigError.
func (e *ConfigError) Is(err error) bool { return err == ErrConfig }

// NewConfigError returns a new ConfigError with the given reason.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfig returns true if the error is a ConfigError.
func IsConfig(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e) || errors.Is(err, ErrConfig)
}

// ConstraintError reports a database constraint violation, most commonly
// a uniqueness violation on insert or update.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("quarry: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying driver error.
func (e ConstraintError) Unwrap() error { return e.wrap }

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraint returns true if the error is a ConstraintError.
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// QueryError wraps a read-path error with the context a caller needs to
// produce an actionable message without re-deriving it.
type QueryError struct {
	Table string // table or collection being queried
	Op    string // operation, e.g. "select", "count", "exists"
	Err   error  // underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("quarry: querying %s (%s): %v", e.Table, e.Op, e.Err)
	}
	return fmt.Sprintf("quarry: querying %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError returns a new QueryError.
func NewQueryError(table, op string, err error) *QueryError {
	return &QueryError{Table: table, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a write-path error with its table and operation.
type MutationError struct {
	Table string // table or collection being mutated
	Op    string // operation, e.g. "insert", "update", "delete"
	Err   error  // underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("quarry: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error { return e.Err }

// NewMutationError returns a new MutationError.
func NewMutationError(table, op string, err error) *MutationError {
	return &MutationError{Table: table, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
