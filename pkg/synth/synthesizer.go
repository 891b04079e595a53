package synth

import (
	"errors"
	"fmt"

	"github.com/mohae/deepcopy"

	"github.com/getmockd/hyperstub/pkg/schema"
)

// Synthesizer builds example objects from definitions.
type Synthesizer struct {
	schema *schema.Schema
}

// NewSynthesizer returns a Synthesizer resolving references against s.
func NewSynthesizer(s *schema.Schema) *Synthesizer {
	return &Synthesizer{schema: s}
}

// Synthesize builds a fresh object for def. Overrides are keyed by the
// "$ref" pointer of the property they replace and apply at every nesting
// level. Properties whose reference carries no example are omitted.
func (s *Synthesizer) Synthesize(overrides map[string]any, def *schema.Definition) (map[string]any, error) {
	return s.object(overrides, def.Name, def.Properties)
}

func (s *Synthesizer) object(overrides map[string]any, owner string, props []*schema.Property) (map[string]any, error) {
	out := make(map[string]any, len(props))
	for _, p := range props {
		v, ok, err := s.property(overrides, owner, p)
		if err != nil {
			return nil, err
		}
		if ok {
			out[p.Name] = v
		}
	}
	return out, nil
}

func (s *Synthesizer) property(overrides map[string]any, owner string, p *schema.Property) (any, bool, error) {
	switch p.Kind {
	case schema.KindNested:
		obj, err := s.object(overrides, owner, p.Properties)
		if err != nil {
			return nil, false, err
		}
		return obj, true, nil

	case schema.KindArray:
		item, ok, err := s.property(overrides, owner, p.Items)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return []any{}, true, nil
		}
		return []any{item}, true, nil

	case schema.KindInline:
		if !p.HasExample {
			return nil, false, nil
		}
		return deepcopy.Copy(p.Example), true, nil

	case schema.KindReference:
		if v, ok := overrides[p.Ref]; ok {
			return deepcopy.Copy(v), true, nil
		}
		v, ok, err := s.schema.Example(p.Pointer)
		if err != nil {
			var bre *schema.BrokenReferenceError
			if errors.As(err, &bre) {
				located := *bre
				located.Definition = owner
				located.Property = p.Name
				return nil, false, &located
			}
			return nil, false, fmt.Errorf("%s.%s: %w", owner, p.Name, err)
		}
		return v, ok, nil
	}
	return nil, false, fmt.Errorf("%s.%s: unsupported property kind %s", owner, p.Name, p.Kind)
}

// PathOverrides converts extracted path properties into synthesis
// overrides.
func PathOverrides(props map[string]string) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
