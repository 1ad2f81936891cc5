package domain

import (
	"fmt"
	"strings"
)

// FieldError is a single user-correctable problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates field-level problems for one operation. It is a
// plain value: expected validation failures never surface as panics and never
// leave partial writes behind for single-row operations.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Messages returns the human-readable error list for display.
func (e ValidationError) Messages() []string {
	out := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		out[i] = fe.Error()
	}
	return out
}

// Add appends a field error.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Empty reports whether no errors were collected.
func (e ValidationError) Empty() bool { return len(e.Errors) == 0 }

// ErrNotFound is returned when a referenced record does not exist at write
// time. The operation that produced it performed no writes.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// BatchFailure identifies one rejected row of a batch operation.
type BatchFailure struct {
	ID  string
	Err error
}

// BatchResult reports a best-effort batch outcome: which rows landed and
// which were rejected, by id. A failed row never blocks the rest of the
// batch from being attempted.
type BatchResult struct {
	Succeeded []string
	Failed    []BatchFailure
}

// OK reports whether every row succeeded.
func (r BatchResult) OK() bool { return len(r.Failed) == 0 }

// Errors flattens the per-row failures into display messages.
func (r BatchResult) Errors() []string {
	out := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		out[i] = fmt.Sprintf("%s: %v", f.ID, f.Err)
	}
	return out
}
