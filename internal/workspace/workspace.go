// Package workspace provides the run-scoped store of computed term
// outputs. Entries are reference-counted by their not-yet-computed
// consumers and evicted as soon as the last consumer has run, unless
// pinned as a requested output or screen dependency. This bounds peak
// memory by live consumers, not by total graph size.
package workspace

import (
	"fmt"
	"sync"
)

// MissingDependencyError reports a read of a term that was never stored.
// Inside an executing run this is an internal invariant violation and
// fatal to the run.
type MissingDependencyError struct {
	Term string
}

// Error implements the error interface.
func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("workspace: missing dependency %s", e.Term)
}

// Store maps term keys to computed values. Runs are single-threaded, but
// the store locks anyway so instrumentation and diagnostics can read it
// concurrently.
type Store struct {
	mu     sync.Mutex
	values map[string]any
	refs   map[string]int
	pinned map[string]bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		values: make(map[string]any),
		refs:   make(map[string]int),
		pinned: make(map[string]bool),
	}
}

// SetRefCount declares how many consumers will release the term.
func (s *Store) SetRefCount(key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[key] = n
}

// Pin marks a term as a requested output or screen dependency, exempting
// it from eviction.
func (s *Store) Pin(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned[key] = true
}

// Put stores a computed value.
func (s *Store) Put(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

// Has reports whether the term has a stored value.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// Get returns the stored value, or MissingDependencyError.
func (s *Store) Get(key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, &MissingDependencyError{Term: key}
	}
	return v, nil
}

// Release decrements the term's reference count after one consumer has
// run, evicting the value once the count reaches zero for unpinned terms.
// It reports whether the value was evicted.
func (s *Store) Release(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[key]--
	if s.refs[key] <= 0 && !s.pinned[key] {
		delete(s.values, key)
		return true
	}
	return false
}

// Len returns the number of live values, for memory diagnostics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
