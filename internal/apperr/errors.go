// Package apperr holds the error types the product service reports to its
// callers. Handlers branch on them with errors.As; anything else is treated
// as an unexpected internal failure.
package apperr

import (
	"fmt"
	"strings"
)

// ValidationError collects every rule violated by a request, grouped per
// field. Messages keep the order in which they were recorded. A request with
// any violation fails as a whole; there is no partial success.
type ValidationError struct {
	Fields map[string][]string

	order []string
}

// NewValidationError returns an empty ValidationError ready for Add calls.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a violation message for the given field.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.order = append(e.order, field)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any violation was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(e.order, ", "))
}

// NotFoundError is returned when a product id does not resolve to a record.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product with ID %s not found", e.ID)
}

// StorageError wraps a blob storage failure. The underlying cause is kept for
// logging but presentation layers only surface a generic message.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
