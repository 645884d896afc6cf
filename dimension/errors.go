package dimension

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("dimension: not found")

	// ErrConflict matches every ConflictError.
	ErrConflict = errors.New("dimension: conflict")

	// ErrTransient matches every TransientError.
	ErrTransient = errors.New("dimension: transient infrastructure failure")
)

// NotFoundError reports that no record of Entity exists under Key.
type NotFoundError struct {
	Entity string
	Key    int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dimension: %s %d not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a write that would violate Constraint.
type ConflictError struct {
	Entity     string
	Constraint string
	// Fields are the constrained fields in declaration order.
	Fields []string
	// Values holds the conflicting value of each constrained field.
	Values map[string]Value
}

func (e *ConflictError) Error() string {
	names := make([]string, 0, len(e.Values))
	for name := range e.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + e.Values[name].String()
	}
	return fmt.Sprintf("dimension: %s violates %s (%s)", e.Entity, e.Constraint, strings.Join(parts, ", "))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// TransientError reports an infrastructure failure during Op. Err is the
// backend's own error.
type TransientError struct {
	Entity string
	Op     string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("dimension: %s %s: %v", e.Entity, e.Op, e.Err)
}

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. Errors that are already
// classified pass through unchanged.
func Transient(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) {
		return err
	}
	return &TransientError{Entity: entity, Op: op, Err: err}
}

// IsClassified reports whether err already belongs to the taxonomy.
func IsClassified(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrTransient)
}
