// Command nxconvert converts a Bluesky run fixture into a NeXus HDF5 file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/robert-malhotra/go-nexus/catalog/memory"
	"github.com/robert-malhotra/go-nexus/errors"
	"github.com/robert-malhotra/go-nexus/internal/ctxlog"
	"github.com/robert-malhotra/go-nexus/metric"
	"github.com/robert-malhotra/go-nexus/nexus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args, converts the fixture and writes the file. Progress goes
// to stdout, logs to stderr.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	cfg, exit, err := parse(args, stdout)
	if err != nil || exit {
		return err
	}
	logger := newLogger(cfg, stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	runNode, err := memory.LoadFixtureFile(cfg.in)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := metric.NewMetrics(reg)
	if err != nil {
		return errors.WrapFatal(err, "nxconvert", "run", "register metrics")
	}

	data, report, err := nexus.Convert(ctx, runNode,
		nexus.WithMetrics(metrics),
		nexus.WithConcurrency(cfg.concurrency),
		nexus.WithCompactThreshold(cfg.compactThreshold),
		nexus.WithLocation(cfg.location),
	)
	if cfg.metricsOut != "" {
		if merr := writeMetrics(reg, cfg.metricsOut); merr != nil {
			logger.Error("metrics not written", "path", cfg.metricsOut, "error", merr)
		}
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfg.out, data, 0o644); err != nil {
		return errors.WrapFatal(err, "nxconvert", "run", "write "+cfg.out)
	}
	fmt.Fprintf(stdout, "%s: run %s, %d streams, %d fields written, %d skipped, %d links\n",
		cfg.out, report.UID, len(report.Streams), len(report.Written()), len(report.Skipped()), len(report.Links))
	for _, o := range report.Skipped() {
		fmt.Fprintf(stdout, "  skipped %s/%s: %s\n", o.Stream, o.Field, o.Reason)
	}
	return nil
}

// writeMetrics dumps every family in reg to path in text exposition format.
func writeMetrics(reg *prometheus.Registry, path string) (err error) {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return err
		}
	}
	return nil
}
