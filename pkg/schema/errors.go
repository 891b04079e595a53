package schema

import (
	"errors"
	"fmt"
)

// Errors returned while loading or resolving a schema.
var (
	ErrBrokenReference     = errors.New("broken reference")
	ErrInvalidPointer      = errors.New("invalid pointer")
	ErrDuplicateDefinition = errors.New("duplicate definition")
	ErrNoSchemaFiles       = errors.New("no schema files matched")
	ErrInvalidDocument     = errors.New("invalid schema document")
)

// BrokenReferenceError reports a "$ref" pointer that does not resolve
// against the schema document.
type BrokenReferenceError struct {
	// Pointer is the reference as written in the document.
	Pointer string

	// Segment is the first pointer segment that could not be found.
	Segment string

	// Definition and Property locate the reference, when known.
	Definition string
	Property   string
}

// Error implements the error interface.
func (e *BrokenReferenceError) Error() string {
	msg := fmt.Sprintf("broken reference %q: segment %q not found", e.Pointer, e.Segment)
	if e.Definition != "" {
		return fmt.Sprintf("%s.%s: %s", e.Definition, e.Property, msg)
	}
	return msg
}

// Unwrap returns ErrBrokenReference so callers can use errors.Is.
func (e *BrokenReferenceError) Unwrap() error {
	return ErrBrokenReference
}
