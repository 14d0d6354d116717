// Package app wires the engine's collaborators together for the CLI: CSV
// history into a loader, listing spans into a lifetimes provider, an HCL
// definition into a pipeline, and the result table onto a writer.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nakulbh/factorgrid/internal/builtin"
	"github.com/nakulbh/factorgrid/internal/calendar"
	"github.com/nakulbh/factorgrid/internal/ctxlog"
	"github.com/nakulbh/factorgrid/internal/engine"
	"github.com/nakulbh/factorgrid/internal/hclspec"
	"github.com/nakulbh/factorgrid/internal/hooks"
	"github.com/nakulbh/factorgrid/internal/lifetimes"
	"github.com/nakulbh/factorgrid/internal/loader"
)

// Config is the validated application configuration.
type Config struct {
	PipelinePath  string
	PricesPath    string
	EventsPath    string
	LifetimesPath string
	Start         time.Time
	End           time.Time
	Chunk         int
	LogFormat     string
	LogLevel      string
}

// NewConfig validates a config.
func NewConfig(c Config) (*Config, error) {
	if c.PipelinePath == "" {
		return nil, fmt.Errorf("app: pipeline path is required")
	}
	if c.PricesPath == "" {
		return nil, fmt.Errorf("app: prices path is required")
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.Start.After(c.End) {
		return nil, fmt.Errorf("app: start %s after end %s",
			c.Start.Format(time.DateOnly), c.End.Format(time.DateOnly))
	}
	return &c, nil
}

// Run loads every input, executes the first pipeline declared in the HCL
// file, and writes the result table as CSV to out.
func Run(ctx context.Context, cfg *Config, out io.Writer) error {
	logger := newLogger(cfg)
	ctx = ctxlog.WithLogger(ctx, logger)

	history, err := readHistory(cfg)
	if err != nil {
		return err
	}
	cal, err := calendar.New(history.Dates)
	if err != nil {
		return err
	}

	mem := loader.NewMem(history.Dates, history.Assets)
	for name, g := range history.Columns {
		if err := mem.SetColumn(name, g); err != nil {
			return err
		}
	}
	if cfg.EventsPath != "" {
		events, err := readEvents(cfg.EventsPath)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := mem.AddEvent(ev.Column, ev.Event); err != nil {
				return err
			}
		}
		logger.Debug("Loaded corrections.", "count", len(events))
	}

	var provider lifetimes.Provider = lifetimes.AlwaysOn{}
	if cfg.LifetimesPath != "" {
		spans, err := readLifetimes(cfg.LifetimesPath)
		if err != nil {
			return err
		}
		provider = lifetimes.NewStatic(spans)
	}

	defs, err := hclspec.Load(cfg.PipelinePath, builtin.Default())
	if err != nil {
		return err
	}
	def := defs[0]
	if len(defs) > 1 {
		logger.Warn("Pipeline file declares multiple pipelines, running the first.", "name", def.Name)
	}

	dom, err := calendar.NewDomain(def.Domain, cal, history.Assets)
	if err != nil {
		return err
	}

	start, end := cfg.Start, cfg.End
	if start.IsZero() {
		start = cal.Session(0)
	}
	if end.IsZero() {
		end = cal.Session(cal.Len() - 1)
	}

	eng := engine.New(mem, provider, engine.WithHooks(hooks.NewSlog()))
	logger.Info("Running pipeline.", "name", def.Name,
		"start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly), "chunk", cfg.Chunk)

	var tbl interface{ WriteCSV(io.Writer) error }
	if cfg.Chunk > 0 {
		tbl, err = eng.RunChunked(ctx, def.Pipeline, dom, start, end, cfg.Chunk)
	} else {
		tbl, err = eng.Run(ctx, def.Pipeline, dom, start, end)
	}
	if err != nil {
		return err
	}
	return tbl.WriteCSV(out)
}

// newLogger builds the slog logger selected by the config.
func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func readHistory(cfg *Config) (*loader.History, error) {
	f, err := os.Open(cfg.PricesPath)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	defer f.Close()
	return loader.ReadPricesCSV(f)
}

func readEvents(path string) ([]loader.ColumnEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	defer f.Close()
	return loader.ReadEventsCSV(f)
}

func readLifetimes(path string) (map[string]lifetimes.Span, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	defer f.Close()
	return loader.ReadLifetimesCSV(f)
}
