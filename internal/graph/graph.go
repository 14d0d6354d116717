// Package graph builds the dependency DAG of interned terms and compiles
// it into an execution plan with per-term look-back requirements.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nakulbh/factorgrid/internal/term"
)

// CycleError reports a dependency cycle. Cycles are impossible to build via
// the interning API, but the graph guards against misuse anyway rather than
// looping forever.
type CycleError struct {
	Node string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("graph: cycle detected involving node %s", e.Node)
}

// Graph is the dependency DAG for one pipeline. Edges point from a
// dependency to its dependent. All operations are concurrency-safe, though
// a graph is normally built once and then only read.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	// order preserves first-insertion order of node keys. It is the
	// documented tie-break for topological sorting, so repeated runs visit
	// simultaneously-ready nodes identically.
	order []string
}

// node is a single vertex. It is unexported to force interaction through
// the graph API.
type node struct {
	term       *term.Term
	deps       map[string]*node
	dependents map[string]*node
}

// newGraph returns an initialized, empty graph.
func newGraph() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// add inserts a term as a node. Re-adding an existing term does nothing,
// which is what collapses shared sub-expressions: interned terms carry one
// key per structural identity.
func (g *Graph) add(t *term.Term) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[t.Key()]; ok {
		return
	}
	g.nodes[t.Key()] = &node{
		term:       t,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, t.Key())
}

// addEdge records that dependent requires dep. Both must already be nodes.
func (g *Graph) addEdge(dep, dependent *term.Term) error {
	if dep.Key() == dependent.Key() {
		return &CycleError{Node: dep.Key()}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[dep.Key()]
	if !ok {
		return fmt.Errorf("graph: dependency node not found: %s", dep.Key())
	}
	to, ok := g.nodes[dependent.Key()]
	if !ok {
		return fmt.Errorf("graph: dependent node not found: %s", dependent.Key())
	}

	to.deps[dep.Key()] = from
	from.dependents[dependent.Key()] = to
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Contains reports whether the term is a node of this graph.
func (g *Graph) Contains(t *term.Term) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[t.Key()]
	return ok
}

// Dependencies returns the terms the given term directly depends on, in
// insertion order.
func (g *Graph) Dependencies(t *term.Term) ([]*term.Term, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[t.Key()]
	if !ok {
		return nil, fmt.Errorf("graph: node not found: %s", t.Key())
	}
	return g.sortedTerms(n.deps), nil
}

// Dependents returns the terms that directly depend on the given term, in
// insertion order.
func (g *Graph) Dependents(t *term.Term) ([]*term.Term, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[t.Key()]
	if !ok {
		return nil, fmt.Errorf("graph: node not found: %s", t.Key())
	}
	return g.sortedTerms(n.dependents), nil
}

// sortedTerms orders a node set by graph insertion order. Callers hold the
// mutex.
func (g *Graph) sortedTerms(set map[string]*node) []*term.Term {
	pos := make(map[string]int, len(g.order))
	for i, k := range g.order {
		pos[k] = i
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return pos[keys[i]] < pos[keys[j]] })
	out := make([]*term.Term, len(keys))
	for i, k := range keys {
		out[i] = set[k].term
	}
	return out
}

// detectCycles checks the graph with a classic three-color depth-first
// search and returns a CycleError naming the first offending node.
func (g *Graph) detectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.term.Key()] {
			return nil
		}
		if temporary[n.term.Key()] {
			return &CycleError{Node: n.term.Key()}
		}
		temporary[n.term.Key()] = true
		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.term.Key())
		permanent[n.term.Key()] = true
		return nil
	}

	for _, k := range g.order {
		if !permanent[k] {
			if err := visit(g.nodes[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopoSort returns every node in dependency order: each term appears after
// all of its dependencies. Ties between simultaneously-ready nodes are
// broken by ascending insertion order (declaration order), which makes
// repeated runs bit-identical.
func (g *Graph) TopoSort() ([]*term.Term, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indegree := make(map[string]int, len(g.nodes))
	for k, n := range g.nodes {
		indegree[k] = len(n.deps)
	}

	var ready []string
	for _, k := range g.order {
		if indegree[k] == 0 {
			ready = append(ready, k)
		}
	}

	pos := make(map[string]int, len(g.order))
	for i, k := range g.order {
		pos[k] = i
	}

	out := make([]*term.Term, 0, len(g.nodes))
	for len(ready) > 0 {
		// Stable tie-break: lowest insertion order first.
		best := 0
		for i := 1; i < len(ready); i++ {
			if pos[ready[i]] < pos[ready[best]] {
				best = i
			}
		}
		k := ready[best]
		ready = append(ready[:best], ready[best+1:]...)

		n := g.nodes[k]
		out = append(out, n.term)
		for dk := range n.dependents {
			indegree[dk]--
			if indegree[dk] == 0 {
				ready = append(ready, dk)
			}
		}
	}

	if len(out) != len(g.nodes) {
		// Some node never became ready, so a cycle survived construction.
		for _, k := range g.order {
			if indegree[k] > 0 {
				return nil, &CycleError{Node: k}
			}
		}
	}
	return out, nil
}
