package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// config is the parsed command line.
type config struct {
	in               string
	out              string
	metricsOut       string
	logLevel         slog.Level
	logFormat        string
	concurrency      int
	compactThreshold int
	location         *time.Location
}

// parse reads args into a config. It returns true when the program should
// exit cleanly, as after -h.
func parse(args []string, output io.Writer) (*config, bool, error) {
	fs := flag.NewFlagSet("nxconvert", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
nxconvert - write a Bluesky run fixture as a NeXus HDF5 file.

Usage:
  nxconvert [options] FIXTURE

Options:
`)
		fs.PrintDefaults()
	}

	in := fs.String("in", "", "Path to the run fixture (YAML).")
	out := fs.String("out", "", "Output file. Defaults to the fixture name with a .nxs extension.")
	metricsOut := fs.String("metrics-out", "", "Write conversion metrics in Prometheus text format to this file.")
	logLevel := fs.String("log-level", "info", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	logFormat := fs.String("log-format", "text", "Log output format: 'text' or 'json'.")
	concurrency := fs.Int("concurrency", 4, "Number of streams read at once.")
	compact := fs.Int("compact-threshold", 64, "Datasets of at most this many bytes are stored compact.")
	tz := fs.String("tz", "Local", "Time zone for start_time and stop_time, as an IANA name.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := &config{
		in:               *in,
		out:              *out,
		metricsOut:       *metricsOut,
		logFormat:        strings.ToLower(*logFormat),
		concurrency:      *concurrency,
		compactThreshold: *compact,
	}
	if cfg.in == "" && fs.NArg() > 0 {
		cfg.in = fs.Arg(0)
	}
	if cfg.in == "" {
		fs.Usage()
		return nil, true, nil
	}
	if cfg.out == "" {
		cfg.out = strings.TrimSuffix(cfg.in, filepath.Ext(cfg.in)) + ".nxs"
	}

	if cfg.logFormat != "text" && cfg.logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch strings.ToLower(*logLevel) {
	case "debug":
		cfg.logLevel = slog.LevelDebug
	case "info":
		cfg.logLevel = slog.LevelInfo
	case "warn":
		cfg.logLevel = slog.LevelWarn
	case "error":
		cfg.logLevel = slog.LevelError
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if cfg.concurrency < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invalid concurrency: must be at least 1"}
	}
	if cfg.compactThreshold < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid compact-threshold: must not be negative"}
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid tz: %v", err)}
	}
	cfg.location = loc
	return cfg, false, nil
}

// newLogger builds the process logger. It does not touch slog.Default.
func newLogger(cfg *config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.logLevel}
	if cfg.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
