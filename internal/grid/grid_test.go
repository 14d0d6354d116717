package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	g, err := FromRows([][]float64{
		{1, 2, 3},
		{4, 5, 6},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Rows())
	assert.Equal(t, 3, g.Cols())
	assert.Equal(t, 5.0, g.At(1, 1))

	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.ErrorContains(t, err, "row 1 has 1 columns")
}

func TestRowIsAView(t *testing.T) {
	g := New[bool](2, 2)
	g.Row(0)[1] = true
	assert.True(t, g.At(0, 1))
}

func TestCloneIsIndependent(t *testing.T) {
	g, err := FromRows([][]int{{1, 2}, {3, 4}})
	require.NoError(t, err)
	c := g.Clone()
	c.Set(0, 0, 99)
	assert.Equal(t, 1, g.At(0, 0))
	assert.Equal(t, 99, c.At(0, 0))
}

func TestSliceRowsCopies(t *testing.T) {
	g, err := FromRows([][]float64{{1, 1}, {2, 2}, {3, 3}})
	require.NoError(t, err)

	s := g.SliceRows(1, 3)
	want, err := FromRows([][]float64{{2, 2}, {3, 3}})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, s, cmp.AllowUnexported(Grid[float64]{})))

	s.Set(0, 0, -1)
	assert.Equal(t, 2.0, g.At(1, 0))
}

func TestOutOfRangePanics(t *testing.T) {
	g := New[float64](2, 2)
	assert.Panics(t, func() { g.At(2, 0) })
	assert.Panics(t, func() { g.Set(0, -1, 0) })
	assert.Panics(t, func() { g.Row(5) })
	assert.Panics(t, func() { g.SliceRows(1, 3) })
}
