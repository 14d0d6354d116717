package term

import (
	"context"
	"fmt"
	"math"
)

// Combinators build new interned nodes from existing ones. They replace the
// operator-overloading surface of lookalike systems with explicit
// functions, preserving the dedup contract: Gt(a, b) called twice returns
// the same node.
//
// All combinators are point-in-time (window 1) and element-wise. Numeric
// combinators propagate NaN; comparisons evaluate to false when either
// operand is NaN.

// Add returns the element-wise sum a + b.
func Add(a, b *Term) (*Term, error) { return arith("add", a, b, func(x, y float64) float64 { return x + y }) }

// Sub returns the element-wise difference a - b.
func Sub(a, b *Term) (*Term, error) { return arith("sub", a, b, func(x, y float64) float64 { return x - y }) }

// Mul returns the element-wise product a * b.
func Mul(a, b *Term) (*Term, error) { return arith("mul", a, b, func(x, y float64) float64 { return x * y }) }

// Div returns the element-wise quotient a / b. Division by zero follows
// IEEE float semantics.
func Div(a, b *Term) (*Term, error) { return arith("div", a, b, func(x, y float64) float64 { return x / y }) }

// Gt returns the filter a > b.
func Gt(a, b *Term) (*Term, error) { return compare("gt", a, b, func(x, y float64) bool { return x > y }) }

// Ge returns the filter a >= b.
func Ge(a, b *Term) (*Term, error) { return compare("ge", a, b, func(x, y float64) bool { return x >= y }) }

// Lt returns the filter a < b.
func Lt(a, b *Term) (*Term, error) { return compare("lt", a, b, func(x, y float64) bool { return x < y }) }

// Le returns the filter a <= b.
func Le(a, b *Term) (*Term, error) { return compare("le", a, b, func(x, y float64) bool { return x <= y }) }

// Eq returns the filter a == b.
func Eq(a, b *Term) (*Term, error) { return compare("eq", a, b, func(x, y float64) bool { return x == y }) }

// GtScalar returns the filter a > v.
func GtScalar(a *Term, v float64) (*Term, error) {
	return compareScalar("gt", a, v, func(x, y float64) bool { return x > y })
}

// GeScalar returns the filter a >= v.
func GeScalar(a *Term, v float64) (*Term, error) {
	return compareScalar("ge", a, v, func(x, y float64) bool { return x >= y })
}

// LtScalar returns the filter a < v.
func LtScalar(a *Term, v float64) (*Term, error) {
	return compareScalar("lt", a, v, func(x, y float64) bool { return x < y })
}

// LeScalar returns the filter a <= v.
func LeScalar(a *Term, v float64) (*Term, error) {
	return compareScalar("le", a, v, func(x, y float64) bool { return x <= y })
}

// NotNaN returns the filter marking cells where a has a real value.
func NotNaN(a *Term) (*Term, error) {
	if err := wantFloat("notnan", a); err != nil {
		return nil, err
	}
	return New(Spec{
		Kind:   Filter,
		Op:     "notnan",
		DType:  Bool,
		Inputs: []*Term{a},
		Compute: func(ctx context.Context, in *ComputeInput) error {
			row := in.Inputs[0].Float.Row(0)
			for i, x := range row {
				in.OutBool[i] = !math.IsNaN(x)
			}
			return nil
		},
	})
}

// And returns the filter a && b.
func And(a, b *Term) (*Term, error) {
	return boolean("and", a, b, func(x, y bool) bool { return x && y })
}

// Or returns the filter a || b.
func Or(a, b *Term) (*Term, error) {
	return boolean("or", a, b, func(x, y bool) bool { return x || y })
}

// Not returns the filter !a.
func Not(a *Term) (*Term, error) {
	if err := wantBool("not", a); err != nil {
		return nil, err
	}
	return New(Spec{
		Kind:   Filter,
		Op:     "not",
		DType:  Bool,
		Inputs: []*Term{a},
		Compute: func(ctx context.Context, in *ComputeInput) error {
			row := in.Inputs[0].Bool.Row(0)
			for i, x := range row {
				in.OutBool[i] = !x
			}
			return nil
		},
	})
}

func arith(op string, a, b *Term, f func(x, y float64) float64) (*Term, error) {
	if err := wantFloat(op, a); err != nil {
		return nil, err
	}
	if err := wantFloat(op, b); err != nil {
		return nil, err
	}
	return New(Spec{
		Kind:   Factor,
		Op:     op,
		DType:  Float64,
		Inputs: []*Term{a, b},
		Compute: func(ctx context.Context, in *ComputeInput) error {
			left := in.Inputs[0].Float.Row(0)
			right := in.Inputs[1].Float.Row(0)
			for i := range in.OutFloat {
				in.OutFloat[i] = f(left[i], right[i])
			}
			return nil
		},
	})
}

func compare(op string, a, b *Term, f func(x, y float64) bool) (*Term, error) {
	if err := wantFloat(op, a); err != nil {
		return nil, err
	}
	if err := wantFloat(op, b); err != nil {
		return nil, err
	}
	return New(Spec{
		Kind:   Filter,
		Op:     op,
		DType:  Bool,
		Inputs: []*Term{a, b},
		Compute: func(ctx context.Context, in *ComputeInput) error {
			left := in.Inputs[0].Float.Row(0)
			right := in.Inputs[1].Float.Row(0)
			for i := range in.OutBool {
				x, y := left[i], right[i]
				in.OutBool[i] = !math.IsNaN(x) && !math.IsNaN(y) && f(x, y)
			}
			return nil
		},
	})
}

func compareScalar(op string, a *Term, v float64, f func(x, y float64) bool) (*Term, error) {
	if err := wantFloat(op, a); err != nil {
		return nil, err
	}
	return New(Spec{
		Kind:   Filter,
		Op:     op,
		DType:  Bool,
		Inputs: []*Term{a},
		Params: []Param{FloatParam("value", v)},
		Compute: func(ctx context.Context, in *ComputeInput) error {
			row := in.Inputs[0].Float.Row(0)
			for i, x := range row {
				in.OutBool[i] = !math.IsNaN(x) && f(x, v)
			}
			return nil
		},
	})
}

func boolean(op string, a, b *Term, f func(x, y bool) bool) (*Term, error) {
	if err := wantBool(op, a); err != nil {
		return nil, err
	}
	if err := wantBool(op, b); err != nil {
		return nil, err
	}
	return New(Spec{
		Kind:   Filter,
		Op:     op,
		DType:  Bool,
		Inputs: []*Term{a, b},
		Compute: func(ctx context.Context, in *ComputeInput) error {
			left := in.Inputs[0].Bool.Row(0)
			right := in.Inputs[1].Bool.Row(0)
			for i := range in.OutBool {
				in.OutBool[i] = f(left[i], right[i])
			}
			return nil
		},
	})
}

func wantFloat(op string, t *Term) error {
	if t == nil {
		return fmt.Errorf("term %q: nil input", op)
	}
	if t.dtype != Float64 {
		return fmt.Errorf("term %q: input %s has dtype %s, want float64", op, t.key, t.dtype)
	}
	return nil
}

func wantBool(op string, t *Term) error {
	if t == nil {
		return fmt.Errorf("term %q: nil input", op)
	}
	if t.dtype != Bool {
		return fmt.Errorf("term %q: input %s has dtype %s, want bool", op, t.key, t.dtype)
	}
	return nil
}
