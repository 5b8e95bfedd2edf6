// Package metric holds the Prometheus metrics of the converter.
package metric

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Conversion outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics contains the conversion metrics. A nil *Metrics records nothing.
type Metrics struct {
	ConversionsTotal   *prometheus.CounterVec
	FieldsTotal        *prometheus.CounterVec
	LinksTotal         prometheus.Counter
	ConversionDuration prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "convert",
				Name:      "runs_total",
				Help:      "Total number of runs converted, by outcome",
			},
			[]string{"outcome"}, // ok, failed
		),

		FieldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "convert",
				Name:      "fields_total",
				Help:      "Total number of stream fields, by stream and status",
			},
			[]string{"stream", "status"}, // written, skipped
		),

		LinksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nexus",
				Subsystem: "convert",
				Name:      "links_total",
				Help:      "Total number of soft links created",
			},
		),

		ConversionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nexus",
				Subsystem: "convert",
				Name:      "duration_seconds",
				Help:      "Run conversion duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.ConversionsTotal, err = register(reg, m.ConversionsTotal); err != nil {
		return nil, err
	}
	if m.FieldsTotal, err = register(reg, m.FieldsTotal); err != nil {
		return nil, err
	}
	if m.LinksTotal, err = register(reg, m.LinksTotal); err != nil {
		return nil, err
	}
	if m.ConversionDuration, err = register(reg, m.ConversionDuration); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, returning the collector already registered under
// the same description if there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

// RecordConversion records one finished conversion.
func (m *Metrics) RecordConversion(err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.ConversionsTotal.WithLabelValues(outcome).Inc()
	m.ConversionDuration.Observe(duration.Seconds())
}

// RecordField records one field outcome of a stream.
func (m *Metrics) RecordField(stream, status string) {
	if m == nil {
		return
	}
	m.FieldsTotal.WithLabelValues(stream, status).Inc()
}

// RecordLinks adds n created links.
func (m *Metrics) RecordLinks(n int) {
	if m == nil {
		return
	}
	m.LinksTotal.Add(float64(n))
}
