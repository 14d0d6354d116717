package lifetimes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulbh/factorgrid/internal/calendar"
)

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStaticProviderMask(t *testing.T) {
	cal, err := calendar.NewWeekdays(day("2024-01-01"), day("2024-01-05"))
	require.NoError(t, err)
	dom, err := calendar.NewDomain("", cal, []string{"AAA", "BBB", "CCC"})
	require.NoError(t, err)

	p := NewStatic(map[string]Span{
		"AAA": {First: day("2024-01-01"), Last: day("2024-12-31")},
		"BBB": {First: day("2024-01-03"), Last: day("2024-01-04")},
	})

	m, err := p.Mask(context.Background(), dom, cal.Sessions())
	require.NoError(t, err)
	require.Equal(t, 5, m.Rows())
	require.Equal(t, 3, m.Cols())

	for i := 0; i < 5; i++ {
		assert.True(t, m.At(i, 0), "AAA alive on every session")
		assert.False(t, m.At(i, 2), "CCC has no span, never alive")
	}
	assert.False(t, m.At(0, 1))
	assert.False(t, m.At(1, 1))
	assert.True(t, m.At(2, 1), "BBB lists on Jan 3")
	assert.True(t, m.At(3, 1))
	assert.False(t, m.At(4, 1), "BBB delists after Jan 4")
}

func TestAlwaysOn(t *testing.T) {
	cal, err := calendar.NewWeekdays(day("2024-01-01"), day("2024-01-03"))
	require.NoError(t, err)
	dom, err := calendar.NewDomain("", cal, []string{"AAA"})
	require.NoError(t, err)

	m, err := AlwaysOn{}.Mask(context.Background(), dom, cal.Sessions())
	require.NoError(t, err)
	for i := 0; i < m.Rows(); i++ {
		assert.True(t, m.At(i, 0))
	}
}
