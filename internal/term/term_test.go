package term

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopCompute(ctx context.Context, in *ComputeInput) error { return nil }

func TestNewInternsStructurally(t *testing.T) {
	close1, err := Bound("close", "")
	require.NoError(t, err)
	close2, err := Bound("close", "")
	require.NoError(t, err)
	assert.Same(t, close1, close2)

	spec := Spec{
		Kind:    Factor,
		Op:      "test_sma",
		DType:   Float64,
		Inputs:  []*Term{close1},
		Window:  5,
		Compute: noopCompute,
	}
	a, err := New(spec)
	require.NoError(t, err)
	b, err := New(spec)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestNewDistinguishesParameters(t *testing.T) {
	closeCol, err := Bound("close", "")
	require.NoError(t, err)

	mk := func(window int, params []Param) *Term {
		tm, err := New(Spec{
			Kind:    Factor,
			Op:      "test_param_factor",
			DType:   Float64,
			Inputs:  []*Term{closeCol},
			Window:  window,
			Params:  params,
			Compute: noopCompute,
		})
		require.NoError(t, err)
		return tm
	}

	base := mk(5, nil)
	assert.Same(t, base, mk(5, nil))
	assert.NotSame(t, base, mk(6, nil))
	assert.NotSame(t, base, mk(5, []Param{FloatParam("decay", 0.5)}))
	assert.NotSame(t, mk(5, []Param{FloatParam("decay", 0.5)}), mk(5, []Param{FloatParam("decay", 0.25)}))
}

func TestFloatParamCanonicalForm(t *testing.T) {
	// 2 and 2.0 must produce identical intern keys.
	assert.Equal(t, FloatParam("v", 2), FloatParam("v", 2.0))
}

func TestConcurrentInterningYieldsOneInstance(t *testing.T) {
	closeCol, err := Bound("close", "")
	require.NoError(t, err)

	const goroutines = 32
	results := make([]*Term, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(slot int) {
			defer wg.Done()
			tm, err := New(Spec{
				Kind:    Factor,
				Op:      "test_concurrent",
				DType:   Float64,
				Inputs:  []*Term{closeCol},
				Window:  3,
				Compute: noopCompute,
			})
			require.NoError(t, err)
			results[slot] = tm
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i], "goroutine %d got a distinct instance", i)
	}
}

func TestNewValidation(t *testing.T) {
	closeCol, err := Bound("close", "")
	require.NoError(t, err)

	t.Run("empty op", func(t *testing.T) {
		_, err := New(Spec{Kind: Factor, DType: Float64})
		assert.ErrorContains(t, err, "empty op")
	})

	t.Run("negative window", func(t *testing.T) {
		_, err := New(Spec{Kind: Factor, Op: "x", DType: Float64, Window: -1})
		assert.ErrorContains(t, err, "window")
	})

	t.Run("kind dtype mismatch", func(t *testing.T) {
		_, err := New(Spec{Kind: Filter, Op: "x", DType: Float64})
		assert.ErrorContains(t, err, "filter requires bool")
	})

	t.Run("mask must be a filter", func(t *testing.T) {
		_, err := New(Spec{Kind: Factor, Op: "x", DType: Float64, Mask: closeCol})
		assert.ErrorContains(t, err, "mask must be a filter")
	})

	t.Run("bound column with inputs", func(t *testing.T) {
		_, err := New(Spec{Kind: BoundColumn, Op: "bound:x", DType: Float64, Inputs: []*Term{closeCol}})
		assert.ErrorContains(t, err, "no inputs")
	})
}

func TestCombinatorsDedup(t *testing.T) {
	a, err := Bound("close", "")
	require.NoError(t, err)
	b, err := Bound("volume", "")
	require.NoError(t, err)

	s1, err := Add(a, b)
	require.NoError(t, err)
	s2, err := Add(a, b)
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	// Operand order matters for non-commutative identity.
	s3, err := Add(b, a)
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)

	g1, err := GtScalar(a, 10)
	require.NoError(t, err)
	g2, err := GtScalar(a, 10)
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	g3, err := GtScalar(a, 11)
	require.NoError(t, err)
	assert.NotSame(t, g1, g3)
}

func TestCombinatorTypeChecks(t *testing.T) {
	a, err := Bound("close", "")
	require.NoError(t, err)
	f, err := GtScalar(a, 0)
	require.NoError(t, err)

	_, err = Add(a, f)
	assert.ErrorContains(t, err, "want float64")

	_, err = And(a, f)
	assert.ErrorContains(t, err, "want bool")

	_, err = Not(a)
	assert.ErrorContains(t, err, "want bool")
}

func TestAliveSingleton(t *testing.T) {
	assert.Same(t, Alive(), Alive())
	assert.True(t, Alive().IsAlive())

	closeCol, err := Bound("close", "")
	require.NoError(t, err)
	assert.False(t, closeCol.IsAlive())
}

func TestBoundName(t *testing.T) {
	closeCol, err := Bound("close", "US")
	require.NoError(t, err)
	name, err := closeCol.BoundName()
	require.NoError(t, err)
	assert.Equal(t, "close", name)
	assert.Equal(t, "US", closeCol.Domain())

	other, err := Bound("close", "EU")
	require.NoError(t, err)
	assert.NotSame(t, closeCol, other)

	_, err = Alive().BoundName()
	assert.Error(t, err)
}

func TestScalarParam(t *testing.T) {
	a, err := Bound("close", "")
	require.NoError(t, err)
	g, err := GtScalar(a, 12.5)
	require.NoError(t, err)

	v, err := g.ScalarParam("value")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = g.ScalarParam("absent")
	assert.ErrorContains(t, err, "missing param")
}
