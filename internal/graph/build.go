package graph

import (
	"context"
	"fmt"

	"github.com/nakulbh/factorgrid/internal/ctxlog"
	"github.com/nakulbh/factorgrid/internal/pipeline"
	"github.com/nakulbh/factorgrid/internal/term"
)

// Build constructs the complete, validated dependency graph for a pipeline.
// It recursively collects every output column's term, its inputs and its
// mask, plus the implicit root node marking "this instrument existed on
// this session". Because terms are interned, a sub-expression shared by
// several columns appears exactly once.
func Build(ctx context.Context, p *pipeline.Pipeline) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	g := newGraph()

	// The root is inserted first so it always precedes every other node in
	// the stable topological order.
	root := term.Alive()
	g.add(root)

	// First pass: collect columns and the screen recursively.
	for _, col := range p.Columns() {
		if err := collect(g, root, col.Term); err != nil {
			return nil, fmt.Errorf("graph: column %q: %w", col.Name, err)
		}
	}
	if screen := p.Screen(); screen != nil {
		if err := collect(g, root, screen); err != nil {
			return nil, fmt.Errorf("graph: screen: %w", err)
		}
	}
	logger.Debug("Build: node collection complete.", "node_count", g.Len())

	// Final validation: cycle detection. Unreachable through the interning
	// API, kept as a guard against hand-built misuse.
	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	return g, nil
}

// collect inserts t and its transitive dependencies, wiring edges from each
// dependency to its dependent. Atomic terms (no inputs) depend on the root
// so lifetimes masking reaches every leaf.
func collect(g *Graph, root, t *term.Term) error {
	if g.Contains(t) {
		return nil
	}
	g.add(t)

	for _, in := range t.Inputs() {
		if err := collect(g, root, in); err != nil {
			return err
		}
		if err := g.addEdge(in, t); err != nil {
			return err
		}
	}
	if mask := t.Mask(); mask != nil {
		if err := collect(g, root, mask); err != nil {
			return err
		}
		if err := g.addEdge(mask, t); err != nil {
			return err
		}
	}
	if len(t.Inputs()) == 0 && !t.IsAlive() {
		if err := g.addEdge(root, t); err != nil {
			return err
		}
	}
	return nil
}
