package term

import "fmt"

// Bound returns the interned bound column for a raw loader column, e.g.
// Bound("close", "US_EQUITIES"). Bound columns are the leaves of every
// graph; the engine populates them from loaders rather than computing them.
func Bound(column, domain string) (*Term, error) {
	if column == "" {
		return nil, fmt.Errorf("term: empty bound column name")
	}
	return New(Spec{
		Kind:   BoundColumn,
		Op:     "bound:" + column,
		DType:  Float64,
		Domain: domain,
	})
}

// BoundName returns the raw column name a bound column refers to.
func (t *Term) BoundName() (string, error) {
	if t.kind != BoundColumn {
		return "", fmt.Errorf("term %s: not a bound column", t.key)
	}
	return t.op[len("bound:"):], nil
}

// aliveOp names the implicit root filter. It has no compute step; the
// engine fills it from the lifetimes provider.
const aliveOp = "alive"

// Alive returns the interned root term marking "this instrument existed on
// this session". Every atomic term implicitly depends on it.
func Alive() *Term {
	t, err := New(Spec{Kind: Filter, Op: aliveOp, DType: Bool})
	if err != nil {
		// Unreachable: the spec above is statically valid.
		panic(err)
	}
	return t
}

// IsAlive reports whether t is the implicit root term.
func (t *Term) IsAlive() bool { return t == Alive() }
