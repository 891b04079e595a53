package schema

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Option configures schema loading.
type Option func(*loadOptions)

type loadOptions struct {
	identity map[string]string
	strict   bool
}

// WithIdentityAttribute maps "identity" placeholders of the named
// definition to attribute instead of DefaultIdentityAttribute. It takes
// precedence over an "x-identity-attribute" entry in the document.
func WithIdentityAttribute(definition, attribute string) Option {
	return func(o *loadOptions) {
		if o.identity == nil {
			o.identity = make(map[string]string)
		}
		o.identity[definition] = attribute
	}
}

// WithStrictReferences resolves every reference at load time and fails
// the load if any of them is broken.
func WithStrictReferences() Option {
	return func(o *loadOptions) {
		o.strict = true
	}
}

// Parse loads a schema from a JSON or YAML document.
func Parse(data []byte, opts ...Option) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return build([]*yaml.Node{&doc}, []string{"<input>"}, opts...)
}

// LoadFile loads a schema from a single file.
func LoadFile(path string, opts ...Option) (*Schema, error) {
	return LoadFiles([]string{path}, opts...)
}

// LoadFiles loads and merges one or more schema documents. Each entry may
// be a file path or a doublestar glob such as "schemas/**/*.json"; glob
// matches are taken in lexical order. Definitions keep their order across
// files, and a definition name declared twice is an error.
func LoadFiles(patterns []string, opts ...Option) (*Schema, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := expand(pattern)
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, ErrNoSchemaFiles
	}

	docs := make([]*yaml.Node, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse schema file %s: %w", file, err)
		}
		docs = append(docs, &doc)
	}

	return build(docs, files, opts...)
}

func expand(pattern string) ([]string, error) {
	if _, err := os.Stat(pattern); err == nil {
		return []string{pattern}, nil
	}
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid schema pattern %q", pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to expand schema pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSchemaFiles, pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

func build(docs []*yaml.Node, sources []string, opts ...Option) (*Schema, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Schema{
		byName: make(map[string]*Definition),
		raw:    make(map[string]any),
	}
	rawDefs := make(map[string]any)

	for i, doc := range docs {
		root := documentRoot(doc)
		if root == nil {
			continue
		}
		if root.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: %s: top level must be an object", ErrInvalidDocument, sources[i])
		}

		var raw map[string]any
		if err := root.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode schema %s: %w", sources[i], err)
		}
		for k, v := range raw {
			if k == "definitions" {
				continue
			}
			if _, exists := s.raw[k]; !exists {
				s.raw[k] = v
			}
		}
		if defs, ok := raw["definitions"].(map[string]any); ok {
			for name, def := range defs {
				rawDefs[name] = def
			}
		}

		defsNode := lookup(root, "definitions")
		if defsNode == nil {
			continue
		}
		if defsNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: %s: definitions must be an object", ErrInvalidDocument, sources[i])
		}
		for _, kv := range pairs(defsNode) {
			if _, exists := s.byName[kv.key]; exists {
				return nil, fmt.Errorf("%w: %s (in %s)", ErrDuplicateDefinition, kv.key, sources[i])
			}
			def, err := s.parseDefinition(kv.key, kv.value, o)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sources[i], err)
			}
			s.definitions = append(s.definitions, def)
			s.byName[def.Name] = def
		}
	}
	s.raw["definitions"] = rawDefs

	if o.strict {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) parseDefinition(name string, n *yaml.Node, o loadOptions) (*Definition, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: definition %q must be an object", ErrInvalidDocument, name)
	}

	def := &Definition{
		Name:              name,
		IdentityAttribute: DefaultIdentityAttribute,
	}
	if v := lookup(n, "x-identity-attribute"); v != nil && v.Kind == yaml.ScalarNode && v.Value != "" {
		def.IdentityAttribute = v.Value
	}
	if attr, ok := o.identity[name]; ok && attr != "" {
		def.IdentityAttribute = attr
	}

	if props := lookup(n, "properties"); props != nil {
		parsed, err := s.parseProperties(name, props)
		if err != nil {
			return nil, err
		}
		def.Properties = parsed
	}

	if links := lookup(n, "links"); links != nil {
		if links.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: %s.links must be an array", ErrInvalidDocument, name)
		}
		for i, ln := range links.Content {
			var link Link
			if err := ln.Decode(&link); err != nil {
				return nil, fmt.Errorf("%w: %s.links[%d]: %v", ErrInvalidDocument, name, i, err)
			}
			if link.Href == "" || link.Method == "" {
				return nil, fmt.Errorf("%w: %s.links[%d]: method and href are required", ErrInvalidDocument, name, i)
			}
			def.Links = append(def.Links, &link)
		}
	}

	return def, nil
}

func (s *Schema) parseProperties(owner string, n *yaml.Node) ([]*Property, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s.properties must be an object", ErrInvalidDocument, owner)
	}
	var out []*Property
	for _, kv := range pairs(n) {
		p, err := s.parseProperty(owner+"."+kv.key, kv.key, kv.value)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Schema) parseProperty(path, name string, n *yaml.Node) (*Property, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: property %s must be an object", ErrInvalidDocument, path)
	}

	p := &Property{Name: name}

	if props := lookup(n, "properties"); props != nil {
		p.Kind = KindNested
		children, err := s.parseProperties(path, props)
		if err != nil {
			return nil, err
		}
		p.Properties = children
		return p, nil
	}

	if ref := lookup(n, "$ref"); ref != nil {
		ptr, err := ParsePointer(ref.Value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", path, err)
		}
		p.Kind = KindReference
		p.Ref = ref.Value
		p.Pointer = ptr
		s.pointers.Store(ref.Value, ptr)
		return p, nil
	}

	if items := lookup(n, "items"); items != nil {
		item, err := s.parseProperty(path+"[]", name, items)
		if err != nil {
			return nil, err
		}
		p.Kind = KindArray
		p.Items = item
		return p, nil
	}

	p.Kind = KindInline
	if ex := lookup(n, "example"); ex != nil {
		if err := ex.Decode(&p.Example); err != nil {
			return nil, fmt.Errorf("%w: property %s: %v", ErrInvalidDocument, path, err)
		}
		p.HasExample = true
	}
	return p, nil
}

type pair struct {
	key   string
	value *yaml.Node
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return doc.Content[0]
	}
	return doc
}

// pairs returns the entries of a mapping node in document order.
func pairs(n *yaml.Node) []pair {
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, pair{key: n.Content[i].Value, value: n.Content[i+1]})
	}
	return out
}

func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
