package factory

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by Build.
var (
	ErrUnknownDefinition = errors.New("unknown definition")
	ErrInvalidFactory    = errors.New("invalid factory")
)

// Violation describes one custom property that fails its schema
// constraint.
type Violation struct {
	// Property is the dotted path of the property, e.g. "owner.email".
	Property string `json:"property"`

	// Pointer is the "$ref" whose target declares the constraint.
	Pointer string `json:"pointer"`

	// Constraint is the violated keyword: "type" or "enum".
	Constraint string `json:"constraint"`

	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// InvalidFactoryError lists every violation found while validating the
// custom properties of a factory build.
type InvalidFactoryError struct {
	Definition string
	Violations []Violation
}

// Error implements the error interface.
func (e *InvalidFactoryError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s (%s): %s", v.Property, v.Constraint, v.Message)
	}
	return fmt.Sprintf("invalid factory %q: %s", e.Definition, strings.Join(parts, "; "))
}

// Unwrap returns ErrInvalidFactory so callers can use errors.Is.
func (e *InvalidFactoryError) Unwrap() error {
	return ErrInvalidFactory
}
