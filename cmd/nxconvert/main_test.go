package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-nexus/errors"
	"github.com/robert-malhotra/go-nexus/hdf5"
	"github.com/robert-malhotra/go-nexus/nexus"
)

const fixture = `
metadata:
  start:
    uid: 0c5f3a1e-1111-4bbb-8ccc-123456789abc
    time: 1665065697.363525
    plan_name: count
    sample_name: foil
  stop:
    time: 1665065735.714015
streams:
  primary:
    metadata:
      hints:
        I0: {fields: [I0]}
      data_keys:
        I0: {dtype: number, units: A}
        missing: {dtype: number}
    internal:
      I0: [1.0, 2.0, 3.0]
      ts_I0: [10.0, 11.0, 12.0]
`

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun(t *testing.T) {
	in := writeFixture(t, fixture)
	metricsPath := filepath.Join(filepath.Dir(in), "metrics.prom")
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), &stdout, &stderr, []string{
		"-log-format", "json", "-tz", "UTC", "-metrics-out", metricsPath, in,
	})
	require.NoError(t, err)

	out := filepath.Join(filepath.Dir(in), "run.nxs")
	assert.Contains(t, stdout.String(), out+": run 0c5f3a1e-1111-4bbb-8ccc-123456789abc, 1 streams, 1 fields written, 1 skipped, 6 links")
	assert.Contains(t, stdout.String(), "skipped primary/missing: no internal column")
	assert.Contains(t, stderr.String(), `"msg":"field skipped"`)

	f, err := hdf5.Open(out)
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.OpenDataset("/0c5f3a1e-1111-4bbb-8ccc-123456789abc/start_time")
	require.NoError(t, err)
	v, err := ds.Value()
	require.NoError(t, err)
	assert.Equal(t, "2022-10-06T14:14:57.363525+00:00", v)

	raw, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Contains(t, families, "nexus_convert_links_total")
	assert.Equal(t, 6.0, families["nexus_convert_links_total"].GetMetric()[0].GetCounter().GetValue())
	require.Contains(t, families, "nexus_convert_runs_total")
	assert.Equal(t, 1.0, families["nexus_convert_runs_total"].GetMetric()[0].GetCounter().GetValue())
}

func TestRunExplicitOutput(t *testing.T) {
	in := writeFixture(t, fixture)
	out := filepath.Join(t.TempDir(), "custom.nxs")
	var stdout, stderr bytes.Buffer

	require.NoError(t, run(context.Background(), &stdout, &stderr, []string{"-in", in, "-out", out, "-concurrency", "1", "-compact-threshold", "0"}))

	f, err := hdf5.Open(out)
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.OpenDataset("/0c5f3a1e-1111-4bbb-8ccc-123456789abc/instrument/bluesky/streams/primary/I0/value")
	require.NoError(t, err)
	assert.False(t, ds.IsCompact())
}

func TestRunConversionFailure(t *testing.T) {
	in := writeFixture(t, `
metadata:
  start: {plan_name: count}
streams: {}
`)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), &stdout, &stderr, []string{in})
	require.Error(t, err)

	var serr *nexus.SerializationError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, nexus.KindMissingIdentifier, serr.Kind)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(in), "run.nxs"))
	assert.True(t, os.IsNotExist(statErr), "no file is written for a failed run")
}

func TestRunBadFixture(t *testing.T) {
	in := writeFixture(t, "metadata: {}\n")
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), &stdout, &stderr, []string{in})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestParseHelp(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {}} {
		var out bytes.Buffer
		cfg, exit, err := parse(args, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParseDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := parse([]string{"data/scan.yaml"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "data/scan.yaml", cfg.in)
	assert.Equal(t, "data/scan.nxs", cfg.out)
	assert.Equal(t, 4, cfg.concurrency)
	assert.Equal(t, 64, cfg.compactThreshold)
	assert.Equal(t, "text", cfg.logFormat)
	assert.Equal(t, time.Local, cfg.location)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-bogus", "x.yaml"}, "flag provided but not defined: -bogus"},
		{"log format", []string{"-log-format", "xml", "x.yaml"}, "invalid log-format"},
		{"log level", []string{"-log-level", "loud", "x.yaml"}, "invalid log-level"},
		{"concurrency", []string{"-concurrency", "0", "x.yaml"}, "invalid concurrency"},
		{"compact threshold", []string{"-compact-threshold", "-1", "x.yaml"}, "invalid compact-threshold"},
		{"time zone", []string{"-tz", "Nowhere/Special", "x.yaml"}, "invalid tz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := parse(tt.args, &out)
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tt.want)
		})
	}
}
