package records

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed or duplicate input to the store
type ValidationError struct {
	Reason string
	IDs    []string // offending record ids, if any
}

func (e *ValidationError) Error() string {
	if len(e.IDs) == 0 {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Reason, strings.Join(e.IDs, ", "))
}

// NotFoundError reports an operation on an id the store does not hold
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %s not found", e.ID)
}
