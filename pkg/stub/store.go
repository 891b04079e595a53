// Package stub holds forced responses that take precedence over schema
// synthesis for an exact method and path.
package stub

import (
	"sort"
	"strings"
	"sync"

	"github.com/mohae/deepcopy"

	"github.com/getmockd/hyperstub/pkg/httputil"
)

// Stub is a forced response for one method and path.
type Stub struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Body       any    `json:"body"`
	StatusCode int    `json:"statusCode"`
}

// Key returns the canonical store key for method and path. The method is
// upper-cased; the path is used verbatim.
func Key(method, path string) string {
	return strings.ToUpper(method) + ":" + path
}

// Store is a thread-safe in-memory stub registry.
type Store struct {
	mu    sync.RWMutex
	stubs map[string]Stub
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		stubs: make(map[string]Stub),
	}
}

// Add registers body for method and path, replacing any existing stub.
// A zero status selects the method default. The body is copied.
func (s *Store) Add(method, path string, body any, status int) Stub {
	if status == 0 {
		status = httputil.DefaultStatus(method)
	}
	st := Stub{
		Method:     strings.ToUpper(method),
		Path:       path,
		Body:       deepcopy.Copy(body),
		StatusCode: status,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[Key(method, path)] = st
	return st
}

// Remove deletes the stub for method and path. Returns true if deleted,
// false if not found.
func (s *Store) Remove(method, path string) bool {
	key := Key(method, path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stubs[key]; exists {
		delete(s.stubs, key)
		return true
	}
	return false
}

// Clear removes all stubs.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = make(map[string]Stub)
}

// Lookup returns the stub registered for method and path. The returned
// body is a copy.
func (s *Store) Lookup(method, path string) (Stub, bool) {
	s.mu.RLock()
	st, ok := s.stubs[Key(method, path)]
	s.mu.RUnlock()
	if !ok {
		return Stub{}, false
	}
	st.Body = deepcopy.Copy(st.Body)
	return st, true
}

// List returns all stubs sorted by path then method.
func (s *Store) List() []Stub {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Stub, 0, len(s.stubs))
	for _, st := range s.stubs {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}

// Count returns the number of stubs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stubs)
}
