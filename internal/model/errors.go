package model

import "fmt"

// ValidationError reports the first rule a constructor rejected. Field uses the
// serialized (JSON) field name so callers can map it back to their input.
type ValidationError struct {
	Entity  string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Entity, e.Field, e.Message)
}

func invalid(entity, field, msg string) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Message: msg}
}
