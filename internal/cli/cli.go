// Package cli parses the command-line surface of the factorgrid binary.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nakulbh/factorgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app
// config, a boolean indicating the program should exit cleanly (e.g. after
// -help), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("factorgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
factorgrid - a point-in-time term-graph execution engine.

Usage:
  factorgrid [options] -pipeline PIPELINE.hcl -prices PRICES.csv

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "", "Path to the HCL pipeline definition.")
	pFlag := flagSet.String("p", "", "Path to the HCL pipeline definition (shorthand).")
	pricesFlag := flagSet.String("prices", "", "Path to the long-format prices CSV (date,asset,<columns...>).")
	eventsFlag := flagSet.String("events", "", "Optional path to the corrections CSV (date,asset,column,kind,value).")
	lifetimesFlag := flagSet.String("lifetimes", "", "Optional path to the listing spans CSV (asset,first,last).")
	startFlag := flagSet.String("start", "", "First output session (YYYY-MM-DD). Defaults to the first session with full history.")
	endFlag := flagSet.String("end", "", "Last output session (YYYY-MM-DD). Defaults to the last stored session.")
	chunkFlag := flagSet.Int("chunk", 0, "Sessions per chunk. 0 runs the whole range at once.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	pipelinePath := *pipelineFlag
	if pipelinePath == "" {
		pipelinePath = *pFlag
	}
	if pipelinePath == "" || *pricesFlag == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *chunkFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid chunk: must be >= 0"}
	}

	start, err := parseDate(*startFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: "invalid start: " + err.Error()}
	}
	end, err := parseDate(*endFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: "invalid end: " + err.Error()}
	}

	config, err := app.NewConfig(app.Config{
		PipelinePath:  pipelinePath,
		PricesPath:    *pricesFlag,
		EventsPath:    *eventsFlag,
		LifetimesPath: *lifetimesFlag,
		Start:         start,
		End:           end,
		Chunk:         *chunkFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
