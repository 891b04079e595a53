package factory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/hyperstub/pkg/schema"
)

// constraintKeywords are copied from a reference target into its
// validation schema. Everything else is ignored.
var constraintKeywords = []string{"type", "enum"}

// constraints compiles and caches one validation schema per pointer.
type constraints struct {
	schema *schema.Schema

	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
	seq      int
}

func newConstraints(s *schema.Schema) *constraints {
	return &constraints{
		schema:   s,
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// validate checks custom against the properties of def and returns every
// violation, ordered by property path.
func (c *constraints) validate(def *schema.Definition, custom map[string]any) ([]Violation, error) {
	var out []Violation
	if err := c.walk(def.Properties, custom, "", &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Property < out[j].Property })
	return out, nil
}

func (c *constraints) walk(props []*schema.Property, custom map[string]any, prefix string, out *[]Violation) error {
	for _, p := range props {
		v, ok := custom[p.Name]
		if !ok {
			continue
		}
		name := prefix + p.Name

		switch p.Kind {
		case schema.KindNested:
			if sub, ok := v.(map[string]any); ok {
				if err := c.walk(p.Properties, sub, name+".", out); err != nil {
					return err
				}
			}
		case schema.KindReference:
			violation, err := c.check(p.Ref, v)
			if err != nil {
				return fmt.Errorf("property %s: %w", name, err)
			}
			if violation != nil {
				violation.Property = name
				*out = append(*out, *violation)
			}
		}
	}
	return nil
}

func (c *constraints) check(ref string, value any) (*Violation, error) {
	sch, err := c.compile(ref)
	if err != nil || sch == nil {
		return nil, err
	}

	instance, err := normalize(value)
	if err != nil {
		return &Violation{Pointer: ref, Constraint: "type", Message: err.Error(), Value: value}, nil
	}

	err = sch.Validate(instance)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &Violation{
		Pointer:    ref,
		Constraint: path.Base(ve.KeywordLocation),
		Message:    ve.Message,
		Value:      value,
	}, nil
}

// compile returns the validation schema for the target of ref, or nil when
// the target declares no constraint.
func (c *constraints) compile(ref string) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sch, ok := c.compiled[ref]; ok {
		return sch, nil
	}

	doc, err := c.keywords(ref)
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		c.compiled[ref] = nil
		return nil, nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constraints for %s: %w", ref, err)
	}

	c.seq++
	url := fmt.Sprintf("hyperstub:///constraints/%d.json", c.seq)
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft4
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add constraints for %s: %w", ref, err)
	}
	sch, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile constraints for %s: %w", ref, err)
	}
	c.compiled[ref] = sch
	return sch, nil
}

// keywords collects the constraint keywords of the target of ref. A target
// without any that forwards through "$ref" is followed, as examples are.
func (c *constraints) keywords(ref string) (map[string]any, error) {
	seen := make(map[string]bool)
	for !seen[ref] {
		seen[ref] = true

		ptr, err := schema.ParsePointer(ref)
		if err != nil {
			return nil, err
		}
		target, err := c.schema.Resolve(ptr)
		if err != nil {
			return nil, err
		}
		obj, ok := target.(map[string]any)
		if !ok {
			return nil, nil
		}

		doc := make(map[string]any)
		for _, kw := range constraintKeywords {
			if v, has := obj[kw]; has {
				doc[kw] = v
			}
		}
		if len(doc) > 0 {
			return doc, nil
		}
		next, ok := obj["$ref"].(string)
		if !ok {
			return nil, nil
		}
		ref = next
	}
	return nil, nil
}

// normalize converts a Go value into the JSON value model the validator
// expects by encoding and decoding it.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON encodable: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
