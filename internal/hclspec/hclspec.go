// Package hclspec loads declarative pipeline definitions from HCL. A file
// declares named columns over registered ops and raw data columns, plus an
// optional screen; the loader resolves it into interned terms, so two
// files declaring the same expression share graph nodes.
//
// Example:
//
//	pipeline "momentum" {
//	  domain = "US_EQUITIES"
//
//	  column "sma5" {
//	    op     = "sma"
//	    inputs = ["close"]
//	    window = 5
//	  }
//
//	  column "cheap" {
//	    op     = "quantiles"
//	    inputs = ["close"]
//	    params = { bins = 4 }
//	  }
//
//	  screen {
//	    column = "sma5"
//	    op     = "gt"
//	    value  = 10
//	  }
//	}
package hclspec

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/nakulbh/factorgrid/internal/pipeline"
	"github.com/nakulbh/factorgrid/internal/registry"
	"github.com/nakulbh/factorgrid/internal/term"
)

// Definition is one resolved pipeline declaration.
type Definition struct {
	Name     string
	Domain   string
	Pipeline *pipeline.Pipeline
}

type fileModel struct {
	Pipelines []pipelineBlock `hcl:"pipeline,block"`
}

type pipelineBlock struct {
	Name    string        `hcl:"name,label"`
	Domain  string        `hcl:"domain,optional"`
	Columns []columnBlock `hcl:"column,block"`
	Screen  *screenBlock  `hcl:"screen,block"`
}

type columnBlock struct {
	Name      string         `hcl:"name,label"`
	Op        string         `hcl:"op"`
	Inputs    []string       `hcl:"inputs"`
	Window    int            `hcl:"window,optional"`
	Params    hcl.Expression `hcl:"params,optional"`
	Mask      string         `hcl:"mask,optional"`
	Overwrite bool           `hcl:"overwrite,optional"`
}

type screenBlock struct {
	Column string  `hcl:"column"`
	Op     string  `hcl:"op"`
	Value  float64 `hcl:"value"`
}

// Load parses and resolves every pipeline declared in the file at path.
func Load(path string, reg *registry.Registry) ([]*Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hclspec: %w", err)
	}
	return Parse(src, path, reg)
}

// Parse resolves pipeline declarations from source bytes.
func Parse(src []byte, filename string, reg *registry.Registry) ([]*Definition, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("hclspec: %s", diags.Error())
	}
	var model fileModel
	if diags := gohcl.DecodeBody(file.Body, nil, &model); diags.HasErrors() {
		return nil, fmt.Errorf("hclspec: %s", diags.Error())
	}
	if len(model.Pipelines) == 0 {
		return nil, fmt.Errorf("hclspec: %s declares no pipelines", filename)
	}

	out := make([]*Definition, 0, len(model.Pipelines))
	for _, pb := range model.Pipelines {
		def, err := resolvePipeline(&pb, reg)
		if err != nil {
			return nil, fmt.Errorf("hclspec: pipeline %q: %w", pb.Name, err)
		}
		out = append(out, def)
	}
	return out, nil
}

// resolvePipeline turns one declaration block into interned terms. Columns
// resolve in declaration order, so later columns may reference earlier
// ones by name; any other input name becomes a bound data column.
func resolvePipeline(pb *pipelineBlock, reg *registry.Registry) (*Definition, error) {
	p := pipeline.New()
	declared := make(map[string]*term.Term)

	for _, cb := range pb.Columns {
		inputs := make([]*term.Term, 0, len(cb.Inputs))
		for _, name := range cb.Inputs {
			in, err := resolveInput(name, declared, pb.Domain)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", cb.Name, err)
			}
			inputs = append(inputs, in)
		}

		var mask *term.Term
		if cb.Mask != "" {
			m, ok := declared[cb.Mask]
			if !ok {
				return nil, fmt.Errorf("column %q: mask %q is not a declared column", cb.Name, cb.Mask)
			}
			mask = m
		}

		params, err := paramsValue(cb.Params)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cb.Name, err)
		}

		t, err := reg.Term(cb.Op, inputs, cb.Window, params, mask, pb.Domain)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cb.Name, err)
		}
		if cb.Overwrite {
			err = p.AddOverwrite(cb.Name, t)
		} else {
			err = p.Add(cb.Name, t)
		}
		if err != nil {
			return nil, err
		}
		declared[cb.Name] = t
	}

	if pb.Screen != nil {
		target, ok := declared[pb.Screen.Column]
		if !ok {
			return nil, fmt.Errorf("screen: %q is not a declared column", pb.Screen.Column)
		}
		screen, err := screenTerm(pb.Screen.Op, target, pb.Screen.Value)
		if err != nil {
			return nil, err
		}
		if err := p.SetScreen(screen); err != nil {
			return nil, err
		}
	}

	return &Definition{Name: pb.Name, Domain: pb.Domain, Pipeline: p}, nil
}

// resolveInput maps an input name to a previously declared column or a
// bound raw column.
func resolveInput(name string, declared map[string]*term.Term, domain string) (*term.Term, error) {
	if t, ok := declared[name]; ok {
		return t, nil
	}
	return term.Bound(name, domain)
}

// screenTerm builds the scalar comparison filter for a screen block.
func screenTerm(op string, target *term.Term, value float64) (*term.Term, error) {
	switch op {
	case "gt":
		return term.GtScalar(target, value)
	case "ge":
		return term.GeScalar(target, value)
	case "lt":
		return term.LtScalar(target, value)
	case "le":
		return term.LeScalar(target, value)
	default:
		return nil, fmt.Errorf("screen: unknown op %q (want gt, ge, lt, or le)", op)
	}
}

// paramsValue evaluates the optional params object into scalars.
func paramsValue(expr hcl.Expression) (map[string]float64, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("params: %s", diags.Error())
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("params: want an object of numbers, got %s", val.Type().FriendlyName())
	}
	out := make(map[string]float64)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if v.Type() != cty.Number {
			return nil, fmt.Errorf("params: %s must be a number, got %s", k.AsString(), v.Type().FriendlyName())
		}
		f, _ := v.AsBigFloat().Float64()
		out[k.AsString()] = f
	}
	return out, nil
}
