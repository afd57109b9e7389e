package apperr

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned when a place id does not exist in the store.
var ErrNotFound = errors.New("place not found")

// ValidationError describes bad client input. Fields maps a request field
// name to the problems found with it; it is empty for errors that are not
// tied to a single field.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// Add records a problem with field and returns the error for chaining.
func (e *ValidationError) Add(field, problem string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], problem)
	return e
}

// Merge copies the field problems of other into e.
func (e *ValidationError) Merge(other *ValidationError) *ValidationError {
	for field, problems := range other.Fields {
		for _, problem := range problems {
			e.Add(field, problem)
		}
	}
	return e
}

// Validation creates a ValidationError that is not keyed to a field.
func Validation(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// FieldError creates a ValidationError with a single field problem.
func FieldError(field, problem string) *ValidationError {
	return (&ValidationError{Message: "validation failed"}).Add(field, problem)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
