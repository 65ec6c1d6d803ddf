// pkg/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// ValidationError reports persisted data that cannot be turned back into a
// live object.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s.%s: %s", e.Entity, e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(entity, field, reason string) error {
	return &ValidationError{Entity: entity, Field: field, Reason: reason}
}

// ErrNotFound is returned by storage backends when no saved world or brain
// has the requested name.
var ErrNotFound = errors.New("not found")

// ErrNoRun is returned when tick stats are recorded outside a run.
var ErrNoRun = errors.New("no run in progress")
