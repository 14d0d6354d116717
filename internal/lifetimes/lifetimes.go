// Package lifetimes supplies the per-(session, instrument) tradability
// mask. The engine consumes it through the Provider interface; asset
// metadata lookup itself lives with external collaborators.
package lifetimes

import (
	"context"
	"time"

	"github.com/nakulbh/factorgrid/internal/calendar"
	"github.com/nakulbh/factorgrid/internal/grid"
)

// Provider returns a bool grid with one row per requested session and one
// column per domain instrument, true where the instrument is tradable.
type Provider interface {
	Mask(ctx context.Context, dom *calendar.Domain, dates []time.Time) (*grid.Grid[bool], error)
}

// Span is an inclusive listing window for one instrument.
type Span struct {
	First time.Time
	Last  time.Time
}

// StaticProvider serves masks from explicit listing spans. Instruments
// without a span are never alive.
type StaticProvider struct {
	spans map[string]Span
}

// NewStatic creates a provider from per-instrument listing spans.
func NewStatic(spans map[string]Span) *StaticProvider {
	return &StaticProvider{spans: spans}
}

// Mask implements Provider.
func (p *StaticProvider) Mask(ctx context.Context, dom *calendar.Domain, dates []time.Time) (*grid.Grid[bool], error) {
	g := grid.New[bool](len(dates), len(dom.Assets))
	for j, asset := range dom.Assets {
		span, ok := p.spans[asset]
		if !ok {
			continue
		}
		for i, d := range dates {
			if !d.Before(span.First) && !d.After(span.Last) {
				g.Set(i, j, true)
			}
		}
	}
	return g, nil
}

// AlwaysOn is a provider that marks every cell tradable. Useful in tests
// and for universes with no delistings in range.
type AlwaysOn struct{}

// Mask implements Provider.
func (AlwaysOn) Mask(ctx context.Context, dom *calendar.Domain, dates []time.Time) (*grid.Grid[bool], error) {
	return grid.NewFilled(len(dates), len(dom.Assets), true), nil
}
