// Package validation checks caller-supplied arguments before any request is made.
package validation

import (
	"math"
	"strings"

	apperrors "gfinance/internal/errors"
)

// FieldError is a single invalid argument.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is a collection of field errors.
type Errors struct {
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface.
func (v Errors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	var msgs []string
	for _, e := range v.Errors {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Is makes every Errors value match apperrors.ErrValidation.
func (v Errors) Is(target error) bool {
	return target == apperrors.ErrValidation
}

// HasErrors returns true if there are validation errors.
func (v Errors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add adds a validation error.
func (v *Errors) Add(field, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// Err returns v as an error, or nil when nothing was added.
func (v Errors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// NormalizeCurrency upper-cases a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(code)
}

// ValidateCurrency reports whether an already normalized code is exactly 3 characters.
func ValidateCurrency(code string) bool {
	return len(code) == 3
}

// ValidateRequired checks if a string is non-empty.
func ValidateRequired(value string) bool {
	return value != ""
}

// ValidateFinite checks that a number can be written into a request body.
func ValidateFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
