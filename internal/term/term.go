// Package term defines the immutable, interned nodes of the computation
// graph. A Term describes one typed computation per (session, instrument)
// cell: a numeric Factor, a boolean Filter, a categorical Classifier, or a
// BoundColumn naming raw loader data.
//
// Terms are value objects. Two constructions with identical kind, op,
// inputs, window, parameters, mask, and domain resolve to the same *Term
// instance, process-wide. This is what collapses structurally identical
// sub-expressions into single graph nodes.
package term

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind distinguishes the closed set of node variants.
type Kind int

const (
	// Factor produces a float64 per cell.
	Factor Kind = iota
	// Filter produces a bool per cell.
	Filter
	// Classifier produces a string label per cell.
	Classifier
	// BoundColumn is a leaf naming a raw data column supplied by a loader.
	BoundColumn
)

// String returns the lowercase variant name.
func (k Kind) String() string {
	switch k {
	case Factor:
		return "factor"
	case Filter:
		return "filter"
	case Classifier:
		return "classifier"
	case BoundColumn:
		return "column"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DType is the output element type of a term.
type DType int

const (
	// Float64 is the dtype of factors and bound columns.
	Float64 DType = iota
	// Bool is the dtype of filters.
	Bool
	// Label is the dtype of classifiers.
	Label
)

// String returns the lowercase dtype name.
func (t DType) String() string {
	switch t {
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case Label:
		return "label"
	default:
		return fmt.Sprintf("dtype(%d)", int(t))
	}
}

// Param is one named scalar parameter of a term, held in canonical string
// form so it can participate in the intern key.
type Param struct {
	Name  string
	Value string
}

// FloatParam builds a Param from a float64 using the shortest round-trip
// formatting, so 2.0 and 2 intern identically.
func FloatParam(name string, v float64) Param {
	return Param{Name: name, Value: strconv.FormatFloat(v, 'g', -1, 64)}
}

// IntParam builds a Param from an int.
func IntParam(name string, v int) Param {
	return Param{Name: name, Value: strconv.Itoa(v)}
}

// StringParam builds a Param from a string.
func StringParam(name, v string) Param {
	return Param{Name: name, Value: v}
}

// Term is one interned node. All fields are fixed at construction; a Term
// is never mutated afterwards, so it is safe to share across runs and
// goroutines.
type Term struct {
	kind    Kind
	op      string
	dtype   DType
	inputs  []*Term
	window  int
	params  []Param
	mask    *Term
	domain  string
	missing float64
	compute ComputeFunc
	key     string
}

// Spec carries the constructor arguments for New. Zero Window defaults
// to 1 (a point-in-time term). Missing defaults to NaN for factors.
type Spec struct {
	Kind       Kind
	Op         string
	DType      DType
	Inputs     []*Term
	Window     int
	Params     []Param
	Mask       *Term
	Domain     string
	Missing    float64
	HasMissing bool
	Compute    ComputeFunc
}

// New validates the spec and returns the canonical interned instance for
// it. Structurally equal specs always return the same pointer.
func New(spec Spec) (*Term, error) {
	if spec.Op == "" {
		return nil, fmt.Errorf("term: empty op name")
	}
	if spec.Window == 0 {
		spec.Window = 1
	}
	if spec.Window < 1 {
		return nil, fmt.Errorf("term %q: window %d must be >= 1", spec.Op, spec.Window)
	}
	if spec.Mask != nil && spec.Mask.kind != Filter {
		return nil, fmt.Errorf("term %q: mask must be a filter, got %s", spec.Op, spec.Mask.kind)
	}
	switch spec.Kind {
	case Factor, BoundColumn:
		if spec.DType != Float64 {
			return nil, fmt.Errorf("term %q: %s requires float64 dtype, got %s", spec.Op, spec.Kind, spec.DType)
		}
	case Filter:
		if spec.DType != Bool {
			return nil, fmt.Errorf("term %q: filter requires bool dtype, got %s", spec.Op, spec.DType)
		}
	case Classifier:
		if spec.DType != Label {
			return nil, fmt.Errorf("term %q: classifier requires label dtype, got %s", spec.Op, spec.DType)
		}
	default:
		return nil, fmt.Errorf("term %q: unknown kind %d", spec.Op, int(spec.Kind))
	}
	if spec.Kind == BoundColumn && len(spec.Inputs) != 0 {
		return nil, fmt.Errorf("term %q: bound columns take no inputs", spec.Op)
	}
	if !spec.HasMissing {
		spec.Missing = math.NaN()
	}

	key := canonicalKey(&spec)
	return intern(key, func() *Term {
		t := &Term{
			kind:    spec.Kind,
			op:      spec.Op,
			dtype:   spec.DType,
			inputs:  append([]*Term(nil), spec.Inputs...),
			window:  spec.Window,
			params:  append([]Param(nil), spec.Params...),
			mask:    spec.Mask,
			domain:  spec.Domain,
			missing: spec.Missing,
			compute: spec.Compute,
			key:     key,
		}
		return t
	}), nil
}

// canonicalKey builds the intern key from every identity-bearing field:
// kind, op, dtype, window, ordered params, ordered input keys, mask key,
// domain, and missing value.
func canonicalKey(spec *Spec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|w=%d", spec.Kind, spec.Op, spec.DType, spec.Window)
	for _, p := range spec.Params {
		fmt.Fprintf(&b, "|%s=%s", p.Name, p.Value)
	}
	for _, in := range spec.Inputs {
		fmt.Fprintf(&b, "|in=%s", in.key)
	}
	if spec.Mask != nil {
		fmt.Fprintf(&b, "|mask=%s", spec.Mask.key)
	}
	if spec.Domain != "" {
		fmt.Fprintf(&b, "|dom=%s", spec.Domain)
	}
	if !math.IsNaN(spec.Missing) {
		fmt.Fprintf(&b, "|miss=%s", strconv.FormatFloat(spec.Missing, 'g', -1, 64))
	}
	return b.String()
}

// Kind returns the node variant.
func (t *Term) Kind() Kind { return t.kind }

// Op returns the operation name, e.g. "sma" or "gt".
func (t *Term) Op() string { return t.op }

// DType returns the output element type.
func (t *Term) DType() DType { return t.dtype }

// Inputs returns the ordered dependency terms. The returned slice must not
// be mutated.
func (t *Term) Inputs() []*Term { return t.inputs }

// Window returns the trailing window length in sessions (>= 1).
func (t *Term) Window() int { return t.window }

// Params returns the ordered scalar parameters.
func (t *Term) Params() []Param { return t.params }

// ScalarParam parses the named parameter back to a float64. Op registries
// use it to reconstruct scalar arguments from the canonical form.
func (t *Term) ScalarParam(name string) (float64, error) {
	raw, ok := t.Param(name)
	if !ok {
		return 0, fmt.Errorf("term %s: missing param %q", t.key, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("term %s: param %q: %w", t.key, name, err)
	}
	return v, nil
}

// Param returns the named parameter value and whether it exists.
func (t *Term) Param(name string) (string, bool) {
	for _, p := range t.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Mask returns the optional filter restricting where this term computes,
// or nil.
func (t *Term) Mask() *Term { return t.mask }

// Domain returns the domain name this term is pinned to, or "" for generic.
func (t *Term) Domain() string { return t.domain }

// Missing returns the value written to cells where the term does not
// compute. Meaningful for factors only; filters use false and classifiers
// use the empty label.
func (t *Term) Missing() float64 { return t.missing }

// Compute returns the compute step, nil for bound columns and the alive
// root.
func (t *Term) Compute() ComputeFunc { return t.compute }

// Key returns the canonical intern key. Keys are unique per structural
// identity and stable across processes.
func (t *Term) Key() string { return t.key }

// Windowed reports whether the term looks back more than one session.
func (t *Term) Windowed() bool { return t.window > 1 }

// String returns the intern key, which doubles as a readable identity in
// logs and errors.
func (t *Term) String() string { return t.key }
