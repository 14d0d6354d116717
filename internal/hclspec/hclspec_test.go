package hclspec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakulbh/factorgrid/internal/registry"
	"github.com/nakulbh/factorgrid/internal/term"
)

func noop(ctx context.Context, in *term.ComputeInput) error { return nil }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	require.NoError(t, r.Register(&registry.Definition{
		Name: "hcl_sma", Kind: term.Factor, DType: term.Float64, NumInputs: 1,
		New: func(map[string]float64) (term.ComputeFunc, error) { return noop, nil },
	}))
	require.NoError(t, r.Register(&registry.Definition{
		Name: "hcl_buckets", Kind: term.Classifier, DType: term.Label, NumInputs: 1,
		New: func(params map[string]float64) (term.ComputeFunc, error) {
			if params["bins"] < 2 {
				return nil, assert.AnError
			}
			return noop, nil
		},
	}))
	return r
}

const momentumSrc = `
pipeline "momentum" {
  domain = "US"

  column "sma5" {
    op     = "hcl_sma"
    inputs = ["close"]
    window = 5
  }

  column "buckets" {
    op     = "hcl_buckets"
    inputs = ["sma5"]
    params = { bins = 4 }
  }

  screen {
    column = "sma5"
    op     = "gt"
    value  = 10
  }
}
`

func TestParseResolvesPipeline(t *testing.T) {
	reg := testRegistry(t)
	defs, err := Parse([]byte(momentumSrc), "momentum.hcl", reg)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "momentum", def.Name)
	assert.Equal(t, "US", def.Domain)

	cols := def.Pipeline.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "sma5", cols[0].Name)
	assert.Equal(t, 5, cols[0].Term.Window())

	// "close" is not a declared column, so it binds to the raw data column
	// in the pipeline's domain.
	ins := cols[0].Term.Inputs()
	require.Len(t, ins, 1)
	assert.Equal(t, term.BoundColumn, ins[0].Kind())
	assert.Equal(t, "US", ins[0].Domain())

	// "sma5" is declared, so the classifier consumes the factor itself.
	assert.Same(t, cols[0].Term, cols[1].Term.Inputs()[0])

	screen := def.Pipeline.Screen()
	require.NotNil(t, screen)
	assert.Equal(t, term.Filter, screen.Kind())
	v, err := screen.ScalarParam("value")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestParseSharesInternedTermsAcrossFiles(t *testing.T) {
	reg := testRegistry(t)

	first, err := Parse([]byte(momentumSrc), "a.hcl", reg)
	require.NoError(t, err)
	second, err := Parse([]byte(momentumSrc), "b.hcl", reg)
	require.NoError(t, err)

	a, ok := first[0].Pipeline.Column("sma5")
	require.True(t, ok)
	b, ok := second[0].Pipeline.Column("sma5")
	require.True(t, ok)
	assert.Same(t, a, b, "identical declarations intern to one graph node")
}

func TestParseErrors(t *testing.T) {
	reg := testRegistry(t)

	t.Run("syntax error", func(t *testing.T) {
		_, err := Parse([]byte(`pipeline "x" {`), "x.hcl", reg)
		assert.Error(t, err)
	})

	t.Run("no pipelines", func(t *testing.T) {
		_, err := Parse([]byte(``), "x.hcl", reg)
		assert.ErrorContains(t, err, "declares no pipelines")
	})

	t.Run("unknown op", func(t *testing.T) {
		src := `
pipeline "x" {
  column "a" {
    op     = "nope"
    inputs = ["close"]
  }
}
`
		_, err := Parse([]byte(src), "x.hcl", reg)
		assert.ErrorContains(t, err, `unknown op "nope"`)
	})

	t.Run("mask must be declared", func(t *testing.T) {
		src := `
pipeline "x" {
  column "a" {
    op     = "hcl_sma"
    inputs = ["close"]
    mask   = "ghost"
  }
}
`
		_, err := Parse([]byte(src), "x.hcl", reg)
		assert.ErrorContains(t, err, `mask "ghost" is not a declared column`)
	})

	t.Run("screen must reference a declared column", func(t *testing.T) {
		src := `
pipeline "x" {
  column "a" {
    op     = "hcl_sma"
    inputs = ["close"]
  }
  screen {
    column = "ghost"
    op     = "gt"
    value  = 1
  }
}
`
		_, err := Parse([]byte(src), "x.hcl", reg)
		assert.ErrorContains(t, err, `"ghost" is not a declared column`)
	})

	t.Run("unknown screen op", func(t *testing.T) {
		src := `
pipeline "x" {
  column "a" {
    op     = "hcl_sma"
    inputs = ["close"]
  }
  screen {
    column = "a"
    op     = "between"
    value  = 1
  }
}
`
		_, err := Parse([]byte(src), "x.hcl", reg)
		assert.ErrorContains(t, err, `unknown op "between"`)
	})

	t.Run("non-numeric params", func(t *testing.T) {
		src := `
pipeline "x" {
  column "a" {
    op     = "hcl_buckets"
    inputs = ["close"]
    params = { bins = "four" }
  }
}
`
		_, err := Parse([]byte(src), "x.hcl", reg)
		assert.ErrorContains(t, err, "must be a number")
	})

	t.Run("duplicate column without overwrite", func(t *testing.T) {
		src := `
pipeline "x" {
  column "a" {
    op     = "hcl_sma"
    inputs = ["close"]
  }
  column "a" {
    op     = "hcl_sma"
    inputs = ["close"]
    window = 3
  }
}
`
		_, err := Parse([]byte(src), "x.hcl", reg)
		assert.ErrorContains(t, err, "duplicate column")
	})
}

func TestParseOverwriteReplacesColumn(t *testing.T) {
	reg := testRegistry(t)
	src := `
pipeline "x" {
  column "a" {
    op     = "hcl_sma"
    inputs = ["close"]
    window = 5
  }
  column "a" {
    op        = "hcl_sma"
    inputs    = ["close"]
    window    = 3
    overwrite = true
  }
}
`
	defs, err := Parse([]byte(src), "x.hcl", reg)
	require.NoError(t, err)
	cols := defs[0].Pipeline.Columns()
	require.Len(t, cols, 1)
	assert.Equal(t, 3, cols[0].Term.Window())
}
