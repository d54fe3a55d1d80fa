package models

import (
	"errors"
	"strings"
)

// ErrValidation is wrapped by every ValidationErrors result.
var ErrValidation = errors.New("validation failed")

// FieldError is a problem with a single field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects field problems.
type ValidationErrors struct {
	Errors []FieldError
}

// AddMessage records a problem with field.
func (v *ValidationErrors) AddMessage(field, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// Error implements error.
func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Errors))
	for _, fe := range v.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (v *ValidationErrors) Unwrap() error { return ErrValidation }

// Err returns nil when nothing was recorded.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}
