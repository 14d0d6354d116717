package table

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAppendChecksArity(t *testing.T) {
	tbl := New([]string{"a", "b"})
	require.NoError(t, tbl.Append(day("2024-01-01"), "AAA", []any{1.0, true}))
	assert.ErrorContains(t, tbl.Append(day("2024-01-01"), "AAA", []any{1.0}), "1 values, want 2")
}

func TestConcat(t *testing.T) {
	mk := func(sessions ...string) *Table {
		tbl := New([]string{"f"})
		for _, s := range sessions {
			require.NoError(t, tbl.Append(day(s), "AAA", []any{1.0}))
		}
		return tbl
	}

	t.Run("chunks join in order", func(t *testing.T) {
		got, err := Concat([]*Table{mk("2024-01-01", "2024-01-02"), mk("2024-01-03")})
		require.NoError(t, err)
		require.Len(t, got.Rows, 3)
		assert.Equal(t, day("2024-01-03"), got.Rows[2].Session)
	})

	t.Run("empty chunk is allowed", func(t *testing.T) {
		got, err := Concat([]*Table{mk("2024-01-01"), mk(), mk("2024-01-02")})
		require.NoError(t, err)
		assert.Len(t, got.Rows, 2)
	})

	t.Run("overlapping chunks rejected", func(t *testing.T) {
		_, err := Concat([]*Table{mk("2024-01-01", "2024-01-02"), mk("2024-01-02")})
		assert.ErrorContains(t, err, "not after")
	})

	t.Run("column mismatch rejected", func(t *testing.T) {
		other := New([]string{"g"})
		_, err := Concat([]*Table{mk("2024-01-01"), other})
		assert.ErrorContains(t, err, `is "g", want "f"`)
	})

	t.Run("no chunks yields empty table", func(t *testing.T) {
		got, err := Concat(nil)
		require.NoError(t, err)
		assert.Empty(t, got.Rows)
	})
}

func TestWriteCSV(t *testing.T) {
	tbl := New([]string{"sma5", "cheap", "bucket"})
	require.NoError(t, tbl.Append(day("2024-01-01"), "AAA", []any{12.5, true, "q1"}))
	require.NoError(t, tbl.Append(day("2024-01-01"), "BBB", []any{7.0, false, "q2"}))

	var sb strings.Builder
	require.NoError(t, tbl.WriteCSV(&sb))

	want := strings.Join([]string{
		"date,asset,sma5,cheap,bucket",
		"2024-01-01,AAA,12.5,true,q1",
		"2024-01-01,BBB,7,false,q2",
		"",
	}, "\n")
	assert.Empty(t, cmp.Diff(want, sb.String()))
}
