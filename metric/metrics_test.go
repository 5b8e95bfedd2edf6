package metric

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.RecordConversion(nil, 20*time.Millisecond)
	m.RecordConversion(fmt.Errorf("missing uid"), time.Millisecond)
	m.RecordField("primary", "written")
	m.RecordField("primary", "written")
	m.RecordField("baseline", "skipped")
	m.RecordLinks(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConversionsTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConversionsTotal.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FieldsTotal.WithLabelValues("primary", "written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldsTotal.WithLabelValues("baseline", "skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LinksTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ConversionDuration))
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	second.RecordLinks(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(first.LinksTotal))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordConversion(nil, time.Second)
		m.RecordField("primary", "written")
		m.RecordLinks(1)
	})

	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m.LinksTotal)
}
