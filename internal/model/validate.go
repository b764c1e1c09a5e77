package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Add appends a field error.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns e when it holds at least one error, or nil.
func (e *ValidationError) Err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// ValidateCompany checks a loaded company for values that were coerced or
// look suspicious. Companies are never rejected; the returned error is a
// report callers log.
func ValidateCompany(c *Company) error {
	var ve ValidationError

	if strings.TrimSpace(c.ID) == "" {
		ve.Add("id", "is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		ve.Add("company_name", "is empty")
	}
	if !c.Industry.IsValid() {
		ve.Add("industry", "invalid value %q", c.Industry)
	}
	if c.DateJoined.IsZero() {
		ve.Add("date_joined", "is missing")
	}
	if c.Valuation < 0 {
		ve.Add("valuation", "must not be negative, got %g", c.Valuation)
	}
	if c.ROI != nil && *c.ROI < 0 {
		ve.Add("roi", "must not be negative, got %g", *c.ROI)
	}

	return ve.Err()
}
