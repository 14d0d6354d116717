// Package table holds the engine's narrow output: one row per surviving
// (session, instrument) pair with one typed cell per requested column.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Row is one surviving (session, instrument) pair. Values holds one cell
// per table column in column order; cells are float64, bool, or string
// depending on the column's term dtype.
type Row struct {
	Session time.Time
	Asset   string
	Values  []any
}

// Table is the final extracted result of a run. Rows are ordered by
// ascending session, then by the domain's instrument order, so repeated
// runs are bit-identical.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column names.
func New(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Append adds one row. The value count must match the column count.
func (t *Table) Append(session time.Time, asset string, values []any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table: row has %d values, want %d", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, Row{Session: session, Asset: asset, Values: values})
	return nil
}

// Concat appends the chunks in order, enforcing identical columns and
// strictly ascending session boundaries between consecutive chunks.
func Concat(chunks []*Table) (*Table, error) {
	if len(chunks) == 0 {
		return New(nil), nil
	}
	out := New(chunks[0].Columns)
	for i, c := range chunks {
		if len(c.Columns) != len(out.Columns) {
			return nil, fmt.Errorf("table: chunk %d has %d columns, want %d", i, len(c.Columns), len(out.Columns))
		}
		for j, name := range c.Columns {
			if name != out.Columns[j] {
				return nil, fmt.Errorf("table: chunk %d column %d is %q, want %q", i, j, name, out.Columns[j])
			}
		}
		if i > 0 && len(c.Rows) > 0 && len(out.Rows) > 0 {
			last := out.Rows[len(out.Rows)-1].Session
			if !last.Before(c.Rows[0].Session) {
				return nil, fmt.Errorf("table: chunk %d starts at %s, not after %s",
					i, c.Rows[0].Session.Format(time.DateOnly), last.Format(time.DateOnly))
			}
		}
		out.Rows = append(out.Rows, c.Rows...)
	}
	return out, nil
}

// WriteCSV writes the table with a "date,asset,<columns...>" header.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"date", "asset"}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("table: %w", err)
	}
	rec := make([]string, len(header))
	for _, row := range t.Rows {
		rec[0] = row.Session.Format(time.DateOnly)
		rec[1] = row.Asset
		for i, v := range row.Values {
			rec[2+i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("table: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
