// Package pipeline defines the declared output of one run: named term
// columns in declaration order plus an optional screen filter.
package pipeline

import (
	"fmt"

	"github.com/nakulbh/factorgrid/internal/term"
)

// DuplicateColumnError is returned when a column name is added twice
// without an explicit overwrite. It is a configuration error, detected
// before any data loads.
type DuplicateColumnError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("pipeline: duplicate column %q (use AddOverwrite to replace)", e.Name)
}

// Column is one named output in declaration order.
type Column struct {
	Name string
	Term *term.Term
}

// Pipeline is a mutable builder for one run's outputs. It is not safe for
// concurrent mutation; build it, then hand it to the engine.
type Pipeline struct {
	columns []Column
	screen  *term.Term
}

// New returns an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Add appends a named column. Adding an existing name fails with
// DuplicateColumnError.
func (p *Pipeline) Add(name string, t *term.Term) error {
	return p.add(name, t, false)
}

// AddOverwrite appends a named column, replacing any existing column of the
// same name in place (declaration order is preserved).
func (p *Pipeline) AddOverwrite(name string, t *term.Term) error {
	return p.add(name, t, true)
}

func (p *Pipeline) add(name string, t *term.Term, overwrite bool) error {
	if name == "" {
		return fmt.Errorf("pipeline: empty column name")
	}
	if t == nil {
		return fmt.Errorf("pipeline: nil term for column %q", name)
	}
	if t.Kind() == term.BoundColumn {
		return fmt.Errorf("pipeline: column %q is a raw bound column; wrap it in a factor (e.g. latest)", name)
	}
	for i, c := range p.columns {
		if c.Name == name {
			if !overwrite {
				return &DuplicateColumnError{Name: name}
			}
			p.columns[i].Term = t
			return nil
		}
	}
	p.columns = append(p.columns, Column{Name: name, Term: t})
	return nil
}

// Remove deletes a named column. Removing an absent name is an error.
func (p *Pipeline) Remove(name string) error {
	for i, c := range p.columns {
		if c.Name == name {
			p.columns = append(p.columns[:i], p.columns[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("pipeline: no column named %q", name)
}

// Columns returns the declared columns in declaration order. The slice must
// not be mutated.
func (p *Pipeline) Columns() []Column { return p.columns }

// Column returns the term for a declared name, if present.
func (p *Pipeline) Column(name string) (*term.Term, bool) {
	for _, c := range p.columns {
		if c.Name == name {
			return c.Term, true
		}
	}
	return nil, false
}

// SetScreen installs a filter that post-filters output rows. It never
// alters computed values, only removes rows.
func (p *Pipeline) SetScreen(f *term.Term) error {
	if f != nil && f.Kind() != term.Filter {
		return fmt.Errorf("pipeline: screen must be a filter, got %s", f.Kind())
	}
	p.screen = f
	return nil
}

// Screen returns the installed screen filter, or nil.
func (p *Pipeline) Screen() *term.Term { return p.screen }
