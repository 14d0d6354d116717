package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/nakulbh/factorgrid/internal/adjarray"
	"github.com/nakulbh/factorgrid/internal/grid"
)

// Event is one point-in-time correction that became known at Date: every
// session strictly before Date gets the correction when a window spans it.
type Event struct {
	Date  time.Time
	Asset string
	Kind  adjarray.AdjKind
	Value float64
}

// MemLoader serves columns from full in-memory history. It backs tests and
// the CSV-fed CLI; production loaders wrap real storage behind the same
// interface.
type MemLoader struct {
	dates    []time.Time
	index    map[time.Time]int
	assets   []string
	assetIdx map[string]int
	columns  map[string]*grid.Grid[float64]
	events   map[string][]Event
}

// NewMem creates a loader over the full stored history grid of
// (dates × assets).
func NewMem(dates []time.Time, assets []string) *MemLoader {
	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}
	assetIdx := make(map[string]int, len(assets))
	for i, a := range assets {
		assetIdx[a] = i
	}
	return &MemLoader{
		dates:    dates,
		index:    index,
		assets:   assets,
		assetIdx: assetIdx,
		columns:  make(map[string]*grid.Grid[float64]),
		events:   make(map[string][]Event),
	}
}

// SetColumn installs the full as-reported history for one column.
func (m *MemLoader) SetColumn(name string, g *grid.Grid[float64]) error {
	if g.Rows() != len(m.dates) || g.Cols() != len(m.assets) {
		return fmt.Errorf("memloader: column %q is %dx%d, want %dx%d",
			name, g.Rows(), g.Cols(), len(m.dates), len(m.assets))
	}
	m.columns[name] = g
	return nil
}

// AddEvent records a correction for one column.
func (m *MemLoader) AddEvent(column string, ev Event) error {
	if _, ok := m.assetIdx[ev.Asset]; !ok {
		return fmt.Errorf("memloader: unknown asset %q in event", ev.Asset)
	}
	m.events[column] = append(m.events[column], ev)
	return nil
}

// Load implements Loader. The requested dates must be a contiguous slice
// of the stored history; requested assets must all be stored. Raw values
// are returned as reported, with events inside the range translated into
// adjustments that replay lazily per window.
func (m *MemLoader) Load(ctx context.Context, column string, dates []time.Time, assets []string) (*adjarray.Array, error) {
	full, ok := m.columns[column]
	if !ok {
		return nil, fmt.Errorf("memloader: unknown column %q", column)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("memloader: empty date request for column %q", column)
	}
	start, ok := m.index[dates[0]]
	if !ok {
		return nil, fmt.Errorf("memloader: column %q: date %s not in stored history",
			column, dates[0].Format(time.DateOnly))
	}
	for k, d := range dates {
		if start+k >= len(m.dates) || !m.dates[start+k].Equal(d) {
			return nil, fmt.Errorf("memloader: column %q: requested dates not contiguous in history at %s",
				column, d.Format(time.DateOnly))
		}
	}

	cols := make([]int, len(assets))
	for j, a := range assets {
		idx, ok := m.assetIdx[a]
		if !ok {
			return nil, fmt.Errorf("memloader: unknown asset %q", a)
		}
		cols[j] = idx
	}

	raw := grid.New[float64](len(dates), len(assets))
	for i := range dates {
		for j, src := range cols {
			raw.Set(i, j, full.At(start+i, src))
		}
	}

	var adjs []adjarray.Adjustment
	for _, ev := range m.events[column] {
		applyRow := m.applyRow(dates, ev.Date)
		if applyRow <= 0 || applyRow >= len(dates) {
			// Known before the range starts (already reflected in raw
			// post-event rows) or after it ends (not yet known).
			continue
		}
		for j, a := range assets {
			if a != ev.Asset {
				continue
			}
			adjs = append(adjs, adjarray.Adjustment{
				Kind:     ev.Kind,
				FirstRow: 0,
				LastRow:  applyRow - 1,
				Col:      j,
				Value:    ev.Value,
				ApplyRow: applyRow,
			})
		}
	}
	return adjarray.New(raw, adjs)
}

// applyRow returns the index of the first requested session at or after
// the event date, or len(dates) when the event lands after the range.
func (m *MemLoader) applyRow(dates []time.Time, eventDate time.Time) int {
	for i, d := range dates {
		if !d.Before(eventDate) {
			return i
		}
	}
	return len(dates)
}
