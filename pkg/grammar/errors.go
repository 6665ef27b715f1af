package grammar

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidInputError reports a structural mismatch between a raw value and the
// grammar: wrong primitive type, unknown field name, missing required field,
// an unresolvable polymorphic choice, and so on. It is always recoverable by
// fixing the input. Once the error leaves the top-level entry point it carries
// the position trace and a bounded snapshot of the offending value.
type InvalidInputError struct {
	Message  string
	Trace    []string
	Snapshot string
}

func (e *InvalidInputError) Error() string {
	if len(e.Trace) == 0 && e.Snapshot == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid input at the following position:\n%s\n-----\nfor value:\n%s\n-----\n%s",
		strings.Join(e.Trace, " - "), e.Snapshot, e.Message)
}

// InternalError reports a violated invariant of the engine itself: duplicate
// definitions, dangling references, an imbalanced trace stack, dispatching a
// non-validation operation onto an unresolved group. It is never the fault of
// the value under validation and always fatal to the operation.
type InternalError struct {
	Message  string
	Trace    []string
	Snapshot string
}

func (e *InternalError) Error() string {
	if len(e.Trace) == 0 && e.Snapshot == "" {
		return e.Message
	}
	return fmt.Sprintf("internal error at the following position:\n%s\n-----\nfor value:\n%s\n-----\n%s",
		strings.Join(e.Trace, " - "), e.Snapshot, e.Message)
}

// NewInvalidInput builds an InvalidInputError from a format string.
func NewInvalidInput(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// NewInternal builds an InternalError from a format string.
func NewInternal(format string, args ...any) *InternalError {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

// IsInvalidInput reports whether err is (or wraps) an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// IsInternal reports whether err is (or wraps) an InternalError.
func IsInternal(err error) bool {
	var target *InternalError
	return errors.As(err, &target)
}

// enrich attaches the failure-site trace and a value snapshot to an error
// coming out of a top-level call. Errors that already carry a trace pass
// through untouched. Anything that is not one of the two engine kinds is
// reclassified as internal, matching the propagation policy: only the engine
// itself produces unknown errors.
func enrich(err error, vctx *Context) error {
	if err == nil {
		return nil
	}
	trace := vctx.Trace()
	snapshot := Snapshot(vctx.current)

	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		if len(invalid.Trace) != 0 || invalid.Snapshot != "" {
			return err
		}
		return &InvalidInputError{Message: invalid.Message, Trace: trace, Snapshot: snapshot}
	}
	var internal *InternalError
	if errors.As(err, &internal) {
		if len(internal.Trace) != 0 || internal.Snapshot != "" {
			return err
		}
		return &InternalError{Message: internal.Message, Trace: trace, Snapshot: snapshot}
	}
	return &InternalError{Message: err.Error(), Trace: trace, Snapshot: snapshot}
}
