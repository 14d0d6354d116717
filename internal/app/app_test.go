package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineSrc = `
pipeline "smoke" {
  column "sma5" {
    op     = "sma"
    inputs = ["close"]
    window = 5
  }

  screen {
    column = "sma5"
    op     = "gt"
    value  = 10
  }
}
`

// writeFixture lays out the scenario on disk: 15 weekday sessions, AAA
// flat at 20, CCC flat at 8, BBB at 30 until a 2-for-1 split effective
// 2024-01-08 takes it to 15.
func writeFixture(t *testing.T) (pipelinePath, pricesPath, eventsPath string) {
	t.Helper()
	dir := t.TempDir()

	split, err := time.Parse(time.DateOnly, "2024-01-08")
	require.NoError(t, err)
	first, err := time.Parse(time.DateOnly, "2023-12-25")
	require.NoError(t, err)
	last, err := time.Parse(time.DateOnly, "2024-01-12")
	require.NoError(t, err)

	var prices strings.Builder
	prices.WriteString("date,asset,close\n")
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		bbb := 30.0
		if !d.Before(split) {
			bbb = 15.0
		}
		fmt.Fprintf(&prices, "%s,AAA,20\n", d.Format(time.DateOnly))
		fmt.Fprintf(&prices, "%s,BBB,%g\n", d.Format(time.DateOnly), bbb)
		fmt.Fprintf(&prices, "%s,CCC,8\n", d.Format(time.DateOnly))
	}

	pipelinePath = filepath.Join(dir, "pipeline.hcl")
	pricesPath = filepath.Join(dir, "prices.csv")
	eventsPath = filepath.Join(dir, "events.csv")
	require.NoError(t, os.WriteFile(pipelinePath, []byte(pipelineSrc), 0o644))
	require.NoError(t, os.WriteFile(pricesPath, []byte(prices.String()), 0o644))
	require.NoError(t, os.WriteFile(eventsPath, []byte("date,asset,column,kind,value\n2024-01-08,BBB,close,multiply,0.5\n"), 0o644))
	return pipelinePath, pricesPath, eventsPath
}

func TestRunEndToEnd(t *testing.T) {
	pipelinePath, pricesPath, eventsPath := writeFixture(t)

	start, err := time.Parse(time.DateOnly, "2024-01-01")
	require.NoError(t, err)
	end, err := time.Parse(time.DateOnly, "2024-01-12")
	require.NoError(t, err)

	cfg, err := NewConfig(Config{
		PipelinePath: pipelinePath,
		PricesPath:   pricesPath,
		EventsPath:   eventsPath,
		Start:        start,
		End:          end,
		LogFormat:    "text",
		LogLevel:     "error",
	})
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, Run(context.Background(), cfg, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, "date,asset,sma5", lines[0])
	// AAA and BBB clear the screen over 10 sessions; CCC never does.
	assert.Len(t, lines[1:], 20)
	assert.Equal(t, "2024-01-01,AAA,20", lines[1])
	assert.Equal(t, "2024-01-01,BBB,30", lines[2])
	assert.Contains(t, lines, "2024-01-08,BBB,15", "split-adjusted average, not the as-reported 27")
	assert.NotContains(t, out.String(), "CCC")
}

func TestRunChunkedEndToEnd(t *testing.T) {
	pipelinePath, pricesPath, eventsPath := writeFixture(t)

	start, err := time.Parse(time.DateOnly, "2024-01-01")
	require.NoError(t, err)
	end, err := time.Parse(time.DateOnly, "2024-01-12")
	require.NoError(t, err)

	mk := func(chunk int) string {
		cfg, err := NewConfig(Config{
			PipelinePath: pipelinePath,
			PricesPath:   pricesPath,
			EventsPath:   eventsPath,
			Start:        start,
			End:          end,
			Chunk:        chunk,
			LogFormat:    "text",
			LogLevel:     "error",
		})
		require.NoError(t, err)
		var out strings.Builder
		require.NoError(t, Run(context.Background(), cfg, &out))
		return out.String()
	}

	assert.Equal(t, mk(0), mk(3), "chunked output must match the whole-range run")
}

func TestNewConfigValidation(t *testing.T) {
	_, err := NewConfig(Config{PricesPath: "p.csv"})
	assert.ErrorContains(t, err, "pipeline path is required")

	_, err = NewConfig(Config{PipelinePath: "p.hcl"})
	assert.ErrorContains(t, err, "prices path is required")
}

func TestRunMissingFiles(t *testing.T) {
	cfg, err := NewConfig(Config{
		PipelinePath: "nope.hcl",
		PricesPath:   "nope.csv",
	})
	require.NoError(t, err)

	var out strings.Builder
	assert.Error(t, Run(context.Background(), cfg, &out))
}
