package term

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// table is the process-wide intern table, canonical key -> *Term. Reads are
// lock-free; sync.Map suits the stable-key, read-heavy access pattern of
// repeated pipeline runs.
var table sync.Map

// constructions serializes first-time construction per key, so concurrent
// builders of a structurally equal term share one instance instead of
// racing LoadOrStore with throwaway duplicates.
var constructions singleflight.Group

// intern returns the canonical instance for key, invoking build at most
// once per key process-wide.
func intern(key string, build func() *Term) *Term {
	if existing, ok := table.Load(key); ok {
		return existing.(*Term)
	}
	v, _, _ := constructions.Do(key, func() (any, error) {
		if existing, ok := table.Load(key); ok {
			return existing, nil
		}
		t := build()
		table.Store(key, t)
		return t, nil
	})
	return v.(*Term)
}

// Lookup returns the interned term for a canonical key, if one exists.
// Used by diagnostics; normal construction goes through New.
func Lookup(key string) (*Term, bool) {
	v, ok := table.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Term), true
}
