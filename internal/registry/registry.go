// Package registry maps op names to term definitions, so declarative
// surfaces (HCL files, config) can build interned terms without linking
// against concrete compute code. Concrete statistical ops register
// themselves here; the engine itself never consults the registry.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nakulbh/factorgrid/internal/term"
)

// Definition describes one constructible op.
type Definition struct {
	// Name is the op name used in declarations, e.g. "sma".
	Name string
	// Kind and DType fix the term variant the op produces.
	Kind  term.Kind
	DType term.DType
	// NumInputs is the required input count.
	NumInputs int
	// DefaultWindow is used when a declaration omits the window. Zero
	// means point-in-time.
	DefaultWindow int
	// New builds the compute step from scalar params.
	New func(params map[string]float64) (term.ComputeFunc, error)
}

// Registry is a concurrency-safe set of op definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition. Re-registering a name is an error; op names
// feed intern keys, so silent replacement would corrupt dedup.
func (r *Registry) Register(def *Definition) error {
	if def.Name == "" {
		return fmt.Errorf("registry: empty op name")
	}
	if def.New == nil {
		return fmt.Errorf("registry: op %q has no constructor", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("registry: op %q already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Lookup returns the definition for an op name.
func (r *Registry) Lookup(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("registry: unknown op %q", name)
	}
	return def, nil
}

// Names returns all registered op names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Term builds the interned term for an op invocation. Params are
// canonicalized in sorted name order so declaration order cannot produce
// distinct intern keys.
func (r *Registry) Term(name string, inputs []*term.Term, window int, params map[string]float64, mask *term.Term, domain string) (*term.Term, error) {
	def, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if len(inputs) != def.NumInputs {
		return nil, fmt.Errorf("registry: op %q takes %d inputs, got %d", name, def.NumInputs, len(inputs))
	}
	if window == 0 {
		window = def.DefaultWindow
	}

	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	termParams := make([]term.Param, 0, len(names))
	for _, n := range names {
		termParams = append(termParams, term.FloatParam(n, params[n]))
	}

	compute, err := def.New(params)
	if err != nil {
		return nil, fmt.Errorf("registry: op %q: %w", name, err)
	}
	return term.New(term.Spec{
		Kind:    def.Kind,
		Op:      name,
		DType:   def.DType,
		Inputs:  inputs,
		Window:  window,
		Params:  termParams,
		Mask:    mask,
		Domain:  domain,
		Compute: compute,
	})
}
