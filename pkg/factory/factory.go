// Package factory builds example objects for named definitions, with
// caller values deep-merged on top.
package factory

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mohae/deepcopy"

	"github.com/getmockd/hyperstub/pkg/logging"
	"github.com/getmockd/hyperstub/pkg/schema"
	"github.com/getmockd/hyperstub/pkg/synth"
)

// Factory produces objects for schema definitions and for literal
// definitions registered with Define. It is safe for concurrent use.
type Factory struct {
	schema *schema.Schema
	synth  *synth.Synthesizer
	log    *slog.Logger

	validate    bool
	constraints *constraints

	mu     sync.RWMutex
	custom map[string]map[string]any
}

// Option configures a Factory.
type Option func(*Factory)

// WithValidation enables type and enum checks of custom properties.
func WithValidation(enabled bool) Option {
	return func(f *Factory) {
		f.validate = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Factory) {
		if log != nil {
			f.log = log
		}
	}
}

// New creates a Factory over s.
func New(s *schema.Schema, opts ...Option) *Factory {
	f := &Factory{
		schema:      s,
		synth:       synth.NewSynthesizer(s),
		log:         logging.Nop(),
		constraints: newConstraints(s),
		custom:      make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build returns a new object for the named definition with custom merged
// on top. Literal definitions registered with Define take precedence over
// schema definitions of the same name. Neither custom nor the schema is
// modified, and the result shares no structure with them.
func (f *Factory) Build(name string, custom map[string]any) (map[string]any, error) {
	f.mu.RLock()
	literal, isCustom := f.custom[name]
	f.mu.RUnlock()

	if isCustom {
		base, _ := deepcopy.Copy(literal).(map[string]any)
		return Merge(base, custom), nil
	}

	def := f.schema.Definition(name)
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, name)
	}

	base, err := f.synth.Synthesize(nil, def)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize %s: %w", name, err)
	}
	result := Merge(base, custom)

	if f.validate && len(custom) > 0 {
		violations, err := f.constraints.validate(def, custom)
		if err != nil {
			return nil, fmt.Errorf("failed to validate %s: %w", name, err)
		}
		if len(violations) > 0 {
			f.log.Debug("factory validation failed", "definition", name, "violations", len(violations))
			return nil, &InvalidFactoryError{Definition: name, Violations: violations}
		}
	}
	return result, nil
}

// Define registers a literal definition. Later builds of name start from a
// copy of props instead of the schema.
func (f *Factory) Define(name string, props map[string]any) {
	literal, _ := deepcopy.Copy(props).(map[string]any)
	if literal == nil {
		literal = make(map[string]any)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.custom[name] = literal
	f.log.Debug("factory defined", "definition", name, "properties", len(literal))
}

// Defined returns the names registered with Define, sorted.
func (f *Factory) Defined() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.custom))
	for name := range f.custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validating reports whether custom properties are validated.
func (f *Factory) Validating() bool {
	return f.validate
}
