// Package builtin registers the reference compute ops used by tests and
// the CLI. The engine treats concrete formulas as external collaborators;
// this set exists so the repo is runnable end to end, not as a complete
// statistical library.
package builtin

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nakulbh/factorgrid/internal/registry"
	"github.com/nakulbh/factorgrid/internal/term"
)

var (
	defaultOnce sync.Once
	defaultReg  *registry.Registry
)

// Default returns the process-wide registry with all builtin ops
// registered.
func Default() *registry.Registry {
	defaultOnce.Do(func() {
		defaultReg = registry.New()
		if err := Register(defaultReg); err != nil {
			// Unreachable: definitions below are statically valid.
			panic(err)
		}
	})
	return defaultReg
}

// Register adds every builtin op to the given registry.
func Register(r *registry.Registry) error {
	defs := []*registry.Definition{
		{
			Name: "latest", Kind: term.Factor, DType: term.Float64, NumInputs: 1,
			New: func(map[string]float64) (term.ComputeFunc, error) { return latest, nil },
		},
		{
			Name: "sma", Kind: term.Factor, DType: term.Float64, NumInputs: 1,
			New: func(map[string]float64) (term.ComputeFunc, error) { return sma, nil },
		},
		{
			Name: "returns", Kind: term.Factor, DType: term.Float64, NumInputs: 1, DefaultWindow: 2,
			New: func(map[string]float64) (term.ComputeFunc, error) { return returns, nil },
		},
		{
			Name: "stddev", Kind: term.Factor, DType: term.Float64, NumInputs: 1,
			New: func(map[string]float64) (term.ComputeFunc, error) { return stddev, nil },
		},
		{
			Name: "quantiles", Kind: term.Classifier, DType: term.Label, NumInputs: 1,
			New: newQuantiles,
		},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// latest emits the most recent value of its input window.
func latest(ctx context.Context, in *term.ComputeInput) error {
	w := in.Inputs[0].Float
	last := w.Row(w.Rows() - 1)
	copy(in.OutFloat, last)
	return nil
}

// sma emits the arithmetic mean over the window. NaN inputs propagate, so
// instruments without full history stay missing.
func sma(ctx context.Context, in *term.ComputeInput) error {
	w := in.Inputs[0].Float
	rows := w.Rows()
	for j := range in.OutFloat {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += w.At(i, j)
		}
		in.OutFloat[j] = sum / float64(rows)
	}
	return nil
}

// returns emits (last - first) / first over the window.
func returns(ctx context.Context, in *term.ComputeInput) error {
	w := in.Inputs[0].Float
	first := w.Row(0)
	last := w.Row(w.Rows() - 1)
	for j := range in.OutFloat {
		in.OutFloat[j] = (last[j] - first[j]) / first[j]
	}
	return nil
}

// stddev emits the sample standard deviation over the window.
func stddev(ctx context.Context, in *term.ComputeInput) error {
	w := in.Inputs[0].Float
	rows := w.Rows()
	if rows < 2 {
		return fmt.Errorf("stddev: window %d too short", rows)
	}
	for j := range in.OutFloat {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += w.At(i, j)
		}
		mean := sum / float64(rows)
		ss := 0.0
		for i := 0; i < rows; i++ {
			d := w.At(i, j) - mean
			ss += d * d
		}
		in.OutFloat[j] = math.Sqrt(ss / float64(rows-1))
	}
	return nil
}

// newQuantiles builds a cross-sectional quantile classifier: each session,
// non-missing latest values are ranked and labeled "q1".."qN". Missing
// values get the empty label.
func newQuantiles(params map[string]float64) (term.ComputeFunc, error) {
	bins := int(params["bins"])
	if bins < 2 {
		return nil, fmt.Errorf("quantiles: bins %d must be >= 2", bins)
	}
	return func(ctx context.Context, in *term.ComputeInput) error {
		w := in.Inputs[0].Float
		last := w.Row(w.Rows() - 1)

		type rankedValue struct {
			col int
			val float64
		}
		ranked := make([]rankedValue, 0, len(last))
		for j, v := range last {
			in.OutLabel[j] = ""
			if !math.IsNaN(v) {
				ranked = append(ranked, rankedValue{col: j, val: v})
			}
		}
		if len(ranked) == 0 {
			return nil
		}
		sort.SliceStable(ranked, func(i, k int) bool { return ranked[i].val < ranked[k].val })
		for pos, rv := range ranked {
			bin := pos * bins / len(ranked)
			if bin >= bins {
				bin = bins - 1
			}
			in.OutLabel[rv.col] = fmt.Sprintf("q%d", bin+1)
		}
		return nil
	}, nil
}
