package relgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	// ErrMapping is returned for inconsistent or insufficient entity metadata.
	ErrMapping = errors.New("relgraph: mapping error")

	// ErrIncoherentQuery is returned when the compiler produced, or was asked
	// to produce, a statement that cannot be valid. It is a programming
	// defect and is raised before anything reaches the database.
	ErrIncoherentQuery = errors.New("relgraph: incoherent query")

	// ErrCapability is returned when a request needs a feature the active
	// dialect does not support.
	ErrCapability = errors.New("relgraph: unsupported capability")

	// ErrDeferredValue is returned when generated identifiers could not be
	// resolved for the statements that depend on them.
	ErrDeferredValue = errors.New("relgraph: deferred value not resolved")
)

// MappingError reports a problem with the metadata of an entity type, such
// as a missing identifier, an ambiguous natural-key lookup or a relation
// whose shape is internally inconsistent.
type MappingError struct {
	Entity string // Entity type name
	Msg    string // Description of the problem
	Err    error  // Optional underlying error
}

// Error returns the error string.
func (e *MappingError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.Entity == "" {
		return "relgraph: mapping: " + msg
	}
	return fmt.Sprintf("relgraph: mapping %s: %s", e.Entity, msg)
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error { return e.Err }

// Is reports whether the target error is ErrMapping.
func (e *MappingError) Is(err error) bool { return err == ErrMapping }

// NewMappingError returns a new MappingError for the given entity type.
func NewMappingError(entity, format string, args ...any) *MappingError {
	return &MappingError{Entity: entity, Msg: fmt.Sprintf(format, args...)}
}

// IsMappingError returns true if the error is a MappingError.
func IsMappingError(err error) bool {
	var e *MappingError
	return errors.As(err, &e)
}

// IncoherentQueryError reports a statement that cannot be built correctly,
// for example when the number of placeholders in a fragment does not match
// the number of parameters, or a predicate references a path that was never
// joined.
type IncoherentQueryError struct {
	SQL          string // Offending SQL fragment, if any
	Placeholders int    // Number of placeholders found in SQL
	Args         []any  // Parameters supplied with SQL
	Msg          string // Description of the problem
}

// Error returns the error string.
func (e *IncoherentQueryError) Error() string {
	if e.SQL == "" {
		return "relgraph: incoherent query: " + e.Msg
	}
	return fmt.Sprintf("relgraph: incoherent query: %s (sql=%q placeholders=%d args=%v)", e.Msg, e.SQL, e.Placeholders, e.Args)
}

// Is reports whether the target error is ErrIncoherentQuery.
func (e *IncoherentQueryError) Is(err error) bool { return err == ErrIncoherentQuery }

// NewIncoherentQueryError returns an IncoherentQueryError without SQL context.
func NewIncoherentQueryError(format string, args ...any) *IncoherentQueryError {
	return &IncoherentQueryError{Msg: fmt.Sprintf(format, args...)}
}

// IsIncoherentQuery returns true if the error is an IncoherentQueryError.
func IsIncoherentQuery(err error) bool {
	var e *IncoherentQueryError
	return errors.As(err, &e)
}

// ExecutionError wraps an error returned by the database for a statement,
// keeping the statement and its parameters for diagnostics.
type ExecutionError struct {
	Op   string // Statement kind (e.g. "SELECT", "INSERT")
	SQL  string // Statement text as sent to the driver
	Args []any  // Bound parameters
	Err  error  // Underlying driver error
}

// Error returns the error string.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("relgraph: executing %s %q args=%v: %v", e.Op, e.SQL, e.Args, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// IsExecutionError returns true if the error is an ExecutionError.
func IsExecutionError(err error) bool {
	var e *ExecutionError
	return errors.As(err, &e)
}

// CapabilityError reports a request for a feature the active dialect does
// not support. Features are never degraded silently.
type CapabilityError struct {
	Dialect string // Dialect name
	Feature string // Requested feature
}

// Error returns the error string.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("relgraph: dialect %s does not support %s", e.Dialect, e.Feature)
}

// Is reports whether the target error is ErrCapability.
func (e *CapabilityError) Is(err error) bool { return err == ErrCapability }

// IsCapabilityError returns true if the error is a CapabilityError.
func IsCapabilityError(err error) bool {
	var e *CapabilityError
	return errors.As(err, &e)
}

// DeferredValueError reports that the generated identifiers read back after
// a statement do not match the elements waiting for them.
type DeferredValueError struct {
	Entity   string // Entity type whose identifiers were expected
	Expected int    // Number of elements expecting an identifier
	Resolved int    // Number of identifiers actually resolved
	Err      error  // Optional underlying error
}

// Error returns the error string.
func (e *DeferredValueError) Error() string {
	msg := fmt.Sprintf("relgraph: %s: resolved %d generated identifiers, expected %d", e.Entity, e.Resolved, e.Expected)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DeferredValueError) Unwrap() error { return e.Err }

// Is reports whether the target error is ErrDeferredValue.
func (e *DeferredValueError) Is(err error) bool { return err == ErrDeferredValue }

// IsDeferredValueError returns true if the error is a DeferredValueError.
func IsDeferredValueError(err error) bool {
	var e *DeferredValueError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("relgraph: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "relgraph: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("relgraph: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
