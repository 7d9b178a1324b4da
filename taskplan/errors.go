package taskplan

import "fmt"

// ValidationError indicates bad scheduler input: a caller bug, not a
// runtime environment failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError indicates an unknown todo id.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("todo %d not found", e.ID)
}
