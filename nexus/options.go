package nexus

import (
	"log/slog"
	"time"

	"github.com/robert-malhotra/go-nexus/metric"
)

const (
	defaultConcurrency      = 4
	defaultCompactThreshold = 64
)

// Option configures a conversion.
type Option func(*config)

type config struct {
	logger           *slog.Logger
	metrics          *metric.Metrics
	concurrency      int
	location         *time.Location
	compactThreshold int
	excluded         map[string]bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		concurrency:      defaultConcurrency,
		location:         time.Local,
		compactThreshold: defaultCompactThreshold,
		excluded:         map[string]bool{"baseline": true},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger. Without it the logger on the context is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics records conversions, fields and links on m.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithConcurrency bounds how many streams are read at once. Values below one
// read streams one at a time.
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.concurrency = max(n, 1)
	}
}

// WithLocation sets the zone start_time and stop_time are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(c *config) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithCompactThreshold stores datasets of at most n encoded bytes inside
// their object header. Zero disables compact storage.
func WithCompactThreshold(n int) Option {
	return func(c *config) {
		c.compactThreshold = max(n, 0)
	}
}

// WithExcludedStreams replaces the set of streams whose hints are not linked
// into the entry's data group. The default excludes "baseline".
func WithExcludedStreams(names ...string) Option {
	return func(c *config) {
		c.excluded = make(map[string]bool, len(names))
		for _, n := range names {
			c.excluded[n] = true
		}
	}
}
