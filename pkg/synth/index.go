package synth

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/getmockd/hyperstub/internal/matching"
	"github.com/getmockd/hyperstub/pkg/schema"
)

// DefaultCacheSize is the number of path lookups an Index remembers.
const DefaultCacheSize = 1024

const noDefinition = -1

// Index finds the definition and link serving a request path. Templates
// are compiled once; the index is safe for concurrent use.
type Index struct {
	entries []indexEntry

	// cache maps a path to the position of its definition in entries, or
	// noDefinition. The schema never changes so entries are never stale.
	cache *lru.Cache[string, int]
}

type indexEntry struct {
	def   *schema.Definition
	links []indexLink
}

type indexLink struct {
	link *schema.Link
	tmpl *matching.Template
}

// Match is the result of a successful lookup.
type Match struct {
	Definition *schema.Definition
	Link       *schema.Link

	// Properties holds values extracted from the path, keyed by the
	// normalized placeholder name.
	Properties map[string]string
}

// Route describes one link of the schema.
type Route struct {
	Definition string `json:"definition"`
	Method     string `json:"method"`
	Href       string `json:"href"`
	Pattern    string `json:"pattern"`
	Rel        string `json:"rel,omitempty"`
	Title      string `json:"title,omitempty"`
}

// IndexOption configures an Index.
type IndexOption func(*indexOptions)

type indexOptions struct {
	cacheSize int
}

// WithCacheSize sets the path lookup cache size. Zero or less disables
// caching.
func WithCacheSize(n int) IndexOption {
	return func(o *indexOptions) {
		o.cacheSize = n
	}
}

// NewIndex compiles every link template of s.
func NewIndex(s *schema.Schema, opts ...IndexOption) (*Index, error) {
	o := indexOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{}
	for _, def := range s.Definitions() {
		e := indexEntry{def: def}
		for _, link := range def.Links {
			tmpl, err := matching.CompileTemplate(link.Href, matching.WithIdentityAttribute(def.IdentityAttribute))
			if err != nil {
				return nil, fmt.Errorf("definition %s: %w", def.Name, err)
			}
			e.links = append(e.links, indexLink{link: link, tmpl: tmpl})
		}
		idx.entries = append(idx.entries, e)
	}

	if o.cacheSize > 0 {
		cache, err := lru.New[string, int](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create index cache: %w", err)
		}
		idx.cache = cache
	}
	return idx, nil
}

// FindDefinition returns the first definition with a link whose template
// matches path, or nil.
func (idx *Index) FindDefinition(path string) *schema.Definition {
	if i := idx.definitionIndex(path); i != noDefinition {
		return idx.entries[i].def
	}
	return nil
}

// FindLink returns the first link of def whose method matches
// case-insensitively and whose template matches path, or nil.
func (idx *Index) FindLink(method, path string, def *schema.Definition) *schema.Link {
	if l := idx.findLink(method, path, def); l != nil {
		return l.link
	}
	return nil
}

// Match resolves a request to its definition, link and path properties.
// The definition is chosen by path alone; when it has no link for method
// the request does not match.
func (idx *Index) Match(method, path string) (*Match, bool) {
	i := idx.definitionIndex(path)
	if i == noDefinition {
		return nil, false
	}
	def := idx.entries[i].def
	l := idx.findLink(method, path, def)
	if l == nil {
		return nil, false
	}
	return &Match{
		Definition: def,
		Link:       l.link,
		Properties: l.tmpl.Extract(path),
	}, true
}

// Routes lists every link in declaration order.
func (idx *Index) Routes() []Route {
	var routes []Route
	for _, e := range idx.entries {
		for _, l := range e.links {
			routes = append(routes, Route{
				Definition: e.def.Name,
				Method:     l.link.Method,
				Href:       l.link.Href,
				Pattern:    l.tmpl.Pattern(),
				Rel:        l.link.Rel,
				Title:      l.link.Title,
			})
		}
	}
	return routes
}

func (idx *Index) definitionIndex(path string) int {
	if idx.cache != nil {
		if i, ok := idx.cache.Get(path); ok {
			return i
		}
	}
	found := noDefinition
	for i, e := range idx.entries {
		if e.matches(path) {
			found = i
			break
		}
	}
	if idx.cache != nil {
		idx.cache.Add(path, found)
	}
	return found
}

func (idx *Index) findLink(method, path string, def *schema.Definition) *indexLink {
	for i := range idx.entries {
		e := &idx.entries[i]
		if e.def != def {
			continue
		}
		for j := range e.links {
			l := &e.links[j]
			if l.link.MatchesMethod(method) && l.tmpl.Test(path) {
				return l
			}
		}
		return nil
	}
	return nil
}

func (e indexEntry) matches(path string) bool {
	for _, l := range e.links {
		if l.tmpl.Test(path) {
			return true
		}
	}
	return false
}
