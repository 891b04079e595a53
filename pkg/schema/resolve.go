package schema

import (
	"errors"

	"github.com/mohae/deepcopy"
)

// Resolve returns a copy of the value designated by p.
func (s *Schema) Resolve(p Pointer) (any, error) {
	v, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return deepcopy.Copy(v), nil
}

// Example returns a copy of the "example" carried by the target of p.
// When the target has no example but forwards to another definition via
// "$ref", the chain is followed. The boolean is false when no example
// exists; a pointer that does not resolve yields a *BrokenReferenceError.
func (s *Schema) Example(p Pointer) (any, bool, error) {
	seen := make(map[string]bool)
	for {
		target, err := s.resolve(p)
		if err != nil {
			return nil, false, err
		}
		obj, ok := target.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		if ex, has := obj["example"]; has {
			return deepcopy.Copy(ex), true, nil
		}

		next, ok := obj["$ref"].(string)
		if !ok {
			return nil, false, nil
		}
		seen[p.raw] = true
		if seen[next] {
			return nil, false, nil
		}
		if p, err = s.pointer(next); err != nil {
			return nil, false, err
		}
	}
}

// Validate resolves every reference in the schema and returns all broken
// references joined into one error.
func (s *Schema) Validate() error {
	var errs []error
	for _, def := range s.definitions {
		errs = s.validateProperties(def.Name, def.Properties, errs)
	}
	return errors.Join(errs...)
}

func (s *Schema) validateProperties(def string, props []*Property, errs []error) []error {
	for _, p := range props {
		switch p.Kind {
		case KindNested:
			errs = s.validateProperties(def, p.Properties, errs)
		case KindArray:
			errs = s.validateProperties(def, []*Property{p.Items}, errs)
		case KindReference:
			if _, _, err := s.Example(p.Pointer); err != nil {
				var bre *BrokenReferenceError
				if errors.As(err, &bre) {
					located := *bre
					located.Definition = def
					located.Property = p.Name
					err = &located
				}
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func (s *Schema) resolve(p Pointer) (any, error) {
	if len(p.tokens) == 0 {
		return s.raw, nil
	}
	if results := p.expr.Get(s.raw); len(results) > 0 {
		return results[0], nil
	}
	return nil, &BrokenReferenceError{Pointer: p.raw, Segment: s.missingSegment(p)}
}

// missingSegment walks the document to find the first token that is absent.
func (s *Schema) missingSegment(p Pointer) string {
	var cur any = s.raw
	for _, tok := range p.tokens {
		obj, ok := cur.(map[string]any)
		if !ok {
			return tok
		}
		next, ok := obj[tok]
		if !ok {
			return tok
		}
		cur = next
	}
	return ""
}

func (s *Schema) pointer(ref string) (Pointer, error) {
	if cached, ok := s.pointers.Load(ref); ok {
		return cached.(Pointer), nil
	}
	p, err := ParsePointer(ref)
	if err != nil {
		return Pointer{}, err
	}
	s.pointers.Store(ref, p)
	return p, nil
}
