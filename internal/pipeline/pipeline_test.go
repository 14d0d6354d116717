package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulbh/factorgrid/internal/term"
)

func testFactor(t *testing.T, op string) *term.Term {
	t.Helper()
	closeCol, err := term.Bound("close", "")
	require.NoError(t, err)
	f, err := term.New(term.Spec{
		Kind:   term.Factor,
		Op:     op,
		DType:  term.Float64,
		Inputs: []*term.Term{closeCol},
		Compute: func(ctx context.Context, in *term.ComputeInput) error {
			return nil
		},
	})
	require.NoError(t, err)
	return f
}

func TestAddRejectsDuplicates(t *testing.T) {
	p := New()
	require.NoError(t, p.Add("f", testFactor(t, "pipe_a")))

	err := p.Add("f", testFactor(t, "pipe_b"))
	var dup *DuplicateColumnError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "f", dup.Name)
}

func TestAddOverwriteReplacesInPlace(t *testing.T) {
	p := New()
	require.NoError(t, p.Add("a", testFactor(t, "pipe_a")))
	require.NoError(t, p.Add("b", testFactor(t, "pipe_b")))

	repl := testFactor(t, "pipe_c")
	require.NoError(t, p.AddOverwrite("a", repl))

	cols := p.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "a", cols[0].Name)
	assert.Same(t, repl, cols[0].Term)
	assert.Equal(t, "b", cols[1].Name)
}

func TestAddRejectsBoundColumn(t *testing.T) {
	closeCol, err := term.Bound("close", "")
	require.NoError(t, err)
	p := New()
	assert.ErrorContains(t, p.Add("close", closeCol), "wrap it in a factor")
}

func TestRemove(t *testing.T) {
	p := New()
	require.NoError(t, p.Add("a", testFactor(t, "pipe_a")))
	require.NoError(t, p.Remove("a"))
	assert.Empty(t, p.Columns())

	assert.ErrorContains(t, p.Remove("a"), `no column named "a"`)
}

func TestColumnLookup(t *testing.T) {
	p := New()
	f := testFactor(t, "pipe_a")
	require.NoError(t, p.Add("a", f))

	got, ok := p.Column("a")
	assert.True(t, ok)
	assert.Same(t, f, got)

	_, ok = p.Column("missing")
	assert.False(t, ok)
}

func TestSetScreenRequiresFilter(t *testing.T) {
	p := New()
	f := testFactor(t, "pipe_a")
	assert.ErrorContains(t, p.SetScreen(f), "screen must be a filter")

	flt, err := term.GtScalar(f, 10)
	require.NoError(t, err)
	require.NoError(t, p.SetScreen(flt))
	assert.Same(t, flt, p.Screen())

	require.NoError(t, p.SetScreen(nil))
	assert.Nil(t, p.Screen())
}
