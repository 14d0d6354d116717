package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nakulbh/factorgrid/internal/adjarray"
	"github.com/nakulbh/factorgrid/internal/grid"
	"github.com/nakulbh/factorgrid/internal/lifetimes"
)

// History is the result of reading a long-format price file: the full
// stored sessions, the instrument universe in first-appearance order, and
// one grid per value column. Cells absent from the file hold NaN.
type History struct {
	Dates   []time.Time
	Assets  []string
	Columns map[string]*grid.Grid[float64]
}

// ReadPricesCSV parses long-format history: a header of
// "date,asset,<col>,<col>,..." followed by one row per (date, asset).
func ReadPricesCSV(r io.Reader) (*History, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("prices csv: %w", err)
	}
	if len(records) < 1 || len(records[0]) < 3 {
		return nil, fmt.Errorf("prices csv: want header date,asset,<columns...>")
	}
	header := records[0]
	valueCols := header[2:]

	var dates []time.Time
	dateIdx := make(map[time.Time]int)
	var assets []string
	assetIdx := make(map[string]int)
	type cell struct {
		date  time.Time
		asset string
		vals  []float64
	}
	var cells []cell

	for line, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("prices csv: line %d has %d fields, want %d", line+2, len(rec), len(header))
		}
		d, err := time.Parse(time.DateOnly, rec[0])
		if err != nil {
			return nil, fmt.Errorf("prices csv: line %d: %w", line+2, err)
		}
		if _, ok := dateIdx[d]; !ok {
			dateIdx[d] = 0
			dates = append(dates, d)
		}
		asset := rec[1]
		if _, ok := assetIdx[asset]; !ok {
			assetIdx[asset] = len(assets)
			assets = append(assets, asset)
		}
		vals := make([]float64, len(valueCols))
		for i, raw := range rec[2:] {
			if raw == "" {
				vals[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("prices csv: line %d column %q: %w", line+2, valueCols[i], err)
			}
			vals[i] = v
		}
		cells = append(cells, cell{date: d, asset: asset, vals: vals})
	}

	// Dates in file order must already be ascending; the engine's calendar
	// will reject anything else anyway, so fail early here.
	for i := 1; i < len(dates); i++ {
		if !dates[i-1].Before(dates[i]) {
			return nil, fmt.Errorf("prices csv: dates not strictly ascending at %s", dates[i].Format(time.DateOnly))
		}
	}
	for i, d := range dates {
		dateIdx[d] = i
	}

	columns := make(map[string]*grid.Grid[float64], len(valueCols))
	for _, name := range valueCols {
		columns[name] = grid.NewFilled(len(dates), len(assets), math.NaN())
	}
	for _, c := range cells {
		row := dateIdx[c.date]
		col := assetIdx[c.asset]
		for i, name := range valueCols {
			columns[name].Set(row, col, c.vals[i])
		}
	}
	return &History{Dates: dates, Assets: assets, Columns: columns}, nil
}

// ColumnEvent pairs a correction with the column it applies to.
type ColumnEvent struct {
	Column string
	Event  Event
}

// ReadEventsCSV parses corrections: "date,asset,column,kind,value" with
// kind "multiply" or "overwrite".
func ReadEventsCSV(r io.Reader) ([]ColumnEvent, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("events csv: %w", err)
	}
	var out []ColumnEvent
	for line, rec := range records {
		if line == 0 && len(rec) > 0 && rec[0] == "date" {
			continue
		}
		if len(rec) != 5 {
			return nil, fmt.Errorf("events csv: line %d has %d fields, want 5", line+1, len(rec))
		}
		d, err := time.Parse(time.DateOnly, rec[0])
		if err != nil {
			return nil, fmt.Errorf("events csv: line %d: %w", line+1, err)
		}
		var kind adjarray.AdjKind
		switch strings.ToLower(rec[3]) {
		case "multiply":
			kind = adjarray.Multiply
		case "overwrite":
			kind = adjarray.Overwrite
		default:
			return nil, fmt.Errorf("events csv: line %d: unknown kind %q", line+1, rec[3])
		}
		v, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("events csv: line %d: %w", line+1, err)
		}
		out = append(out, ColumnEvent{
			Column: rec[2],
			Event:  Event{Date: d, Asset: rec[1], Kind: kind, Value: v},
		})
	}
	return out, nil
}

// ReadLifetimesCSV parses listing spans: "asset,first,last" per line.
func ReadLifetimesCSV(r io.Reader) (map[string]lifetimes.Span, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("lifetimes csv: %w", err)
	}
	out := make(map[string]lifetimes.Span)
	for line, rec := range records {
		if line == 0 && len(rec) > 0 && rec[0] == "asset" {
			continue
		}
		if len(rec) != 3 {
			return nil, fmt.Errorf("lifetimes csv: line %d has %d fields, want 3", line+1, len(rec))
		}
		first, err := time.Parse(time.DateOnly, rec[1])
		if err != nil {
			return nil, fmt.Errorf("lifetimes csv: line %d: %w", line+1, err)
		}
		last, err := time.Parse(time.DateOnly, rec[2])
		if err != nil {
			return nil, fmt.Errorf("lifetimes csv: line %d: %w", line+1, err)
		}
		out[rec[0]] = lifetimes.Span{First: first, Last: last}
	}
	return out, nil
}
