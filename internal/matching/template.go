package matching

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// IdentitySuffix is the placeholder name suffix rewritten to the identity
// attribute.
const IdentitySuffix = "identity"

// DefaultIdentityAttribute replaces IdentitySuffix unless overridden.
const DefaultIdentityAttribute = "name"

// Errors returned by CompileTemplate.
var (
	ErrInvalidPlaceholder   = errors.New("invalid placeholder")
	ErrDuplicatePlaceholder = errors.New("duplicate placeholder")
)

var placeholderRe = regexp.MustCompile(`\{[^{}/]+\}`)

const segmentPattern = `([\w-]+)`

// Template is a compiled link href.
type Template struct {
	href  string
	re    *regexp.Regexp
	names []string
}

// TemplateOption configures template compilation.
type TemplateOption func(*templateOptions)

type templateOptions struct {
	identity string
}

// WithIdentityAttribute sets the attribute that replaces an "identity"
// suffix in placeholder names.
func WithIdentityAttribute(attr string) TemplateOption {
	return func(o *templateOptions) {
		if attr != "" {
			o.identity = attr
		}
	}
}

// CompileTemplate compiles href into an anchored matcher.
func CompileTemplate(href string, opts ...TemplateOption) (*Template, error) {
	o := templateOptions{identity: DefaultIdentityAttribute}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		pattern strings.Builder
		names   []string
		seen    = make(map[string]bool)
		last    int
	)
	pattern.WriteString("^")
	for _, loc := range placeholderRe.FindAllStringIndex(href, -1) {
		pattern.WriteString(regexp.QuoteMeta(href[last:loc[0]]))
		pattern.WriteString(segmentPattern)
		last = loc[1]

		name, err := PlaceholderName(href[loc[0]:loc[1]], o.identity)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", href, err)
		}
		if seen[name] {
			return nil, fmt.Errorf("template %q: %w: %s", href, ErrDuplicatePlaceholder, name)
		}
		seen[name] = true
		names = append(names, name)
	}
	pattern.WriteString(regexp.QuoteMeta(href[last:]))
	pattern.WriteString("$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", href, err)
	}
	return &Template{href: href, re: re, names: names}, nil
}

// MustCompileTemplate is like CompileTemplate but panics on error.
func MustCompileTemplate(href string, opts ...TemplateOption) *Template {
	t, err := CompileTemplate(href, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// PlaceholderName normalizes a raw "{...}" placeholder into the key used
// for extracted values.
func PlaceholderName(raw, identity string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidPlaceholder, raw, err)
	}
	name := strings.Map(func(r rune) rune {
		switch r {
		case '{', '}', '(', ')':
			return -1
		}
		return r
	}, decoded)
	if name == "" {
		return "", fmt.Errorf("%w %q: empty name", ErrInvalidPlaceholder, raw)
	}
	if strings.HasSuffix(name, IdentitySuffix) {
		name = strings.TrimSuffix(name, IdentitySuffix) + identity
	}
	return name, nil
}

// Href returns the template as written.
func (t *Template) Href() string {
	return t.href
}

// Names returns the normalized placeholder names in template order.
func (t *Template) Names() []string {
	return append([]string(nil), t.names...)
}

// Pattern returns the compiled regular expression source.
func (t *Template) Pattern() string {
	return t.re.String()
}

// Test reports whether path matches the template exactly.
func (t *Template) Test(path string) bool {
	return t.re.MatchString(path)
}

// Extract returns placeholder values captured from path, or nil when the
// path does not match. Captured values are percent-decoded; a value that
// cannot be decoded is returned as captured.
func (t *Template) Extract(path string) map[string]string {
	m := t.re.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(t.names))
	for i, name := range t.names {
		v := m[i+1]
		if decoded, err := url.PathUnescape(v); err == nil {
			v = decoded
		}
		out[name] = v
	}
	return out
}
