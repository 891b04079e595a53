package schema

import (
	"strings"
	"sync"
)

// DefaultIdentityAttribute is the property that "{...identity}" path
// placeholders are mapped to unless a definition overrides it.
//
// This is an approximation: some resources expose a different attribute
// as their display name.
const DefaultIdentityAttribute = "name"

// Kind classifies a property spec.
type Kind int

// Property kinds.
const (
	KindReference Kind = iota
	KindNested
	KindArray
	KindInline
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindReference:
		return "reference"
	case KindNested:
		return "nested"
	case KindArray:
		return "array"
	case KindInline:
		return "inline"
	default:
		return "unknown"
	}
}

// Schema is a loaded schema document. It is immutable once loaded and
// safe for concurrent use.
type Schema struct {
	definitions []*Definition
	byName      map[string]*Definition

	// raw is the decoded document used for pointer resolution.
	raw map[string]any

	// pointers caches parsed pointers; property pointers are stored at
	// load time, chained "$ref" targets are added lazily.
	pointers sync.Map
}

// Definition is one resource type of the schema.
type Definition struct {
	Name       string
	Properties []*Property
	Links      []*Link

	// IdentityAttribute replaces the "identity" suffix of placeholder
	// names in this definition's link templates.
	IdentityAttribute string
}

// Property returns the top-level property with the given name.
func (d *Definition) Property(name string) *Property {
	for _, p := range d.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Property is a tagged property spec.
type Property struct {
	Name string
	Kind Kind

	// Ref and Pointer are set for KindReference.
	Ref     string
	Pointer Pointer

	// Properties is set for KindNested.
	Properties []*Property

	// Items is set for KindArray.
	Items *Property

	// Example and HasExample are set for KindInline.
	Example    any
	HasExample bool
}

// Link is a method and URL template operating on a definition.
type Link struct {
	Method string `yaml:"method" json:"method"`
	Href   string `yaml:"href" json:"href"`
	Rel    string `yaml:"rel,omitempty" json:"rel,omitempty"`
	Title  string `yaml:"title,omitempty" json:"title,omitempty"`
}

// MatchesMethod reports whether the link handles the given HTTP method.
// Comparison is case-insensitive.
func (l *Link) MatchesMethod(method string) bool {
	return strings.EqualFold(l.Method, method)
}

// Definitions returns the definitions in declaration order.
// The returned slice must not be modified.
func (s *Schema) Definitions() []*Definition {
	return s.definitions
}

// Definition returns the definition with the given name, or nil.
func (s *Schema) Definition(name string) *Definition {
	return s.byName[name]
}

// Names returns definition names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.definitions))
	for i, d := range s.definitions {
		names[i] = d.Name
	}
	return names
}
