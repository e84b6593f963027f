package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequestIncrementsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("rest", reg)

	m.RecordRequest("get_markets", "success", 0)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	assert.True(t, hasMetricFamily(metricFamilies, "requests_total"))
}

func TestSetConnectionStateSingleActiveSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("ws", reg)

	states := []string{"disconnected", "connecting", "connected"}
	m.SetConnectionState("connected", states)

	assert.Equal(t, 1.0, testGaugeValue(t, m.ConnectionState.WithLabelValues("ws", "connected")))
	assert.Equal(t, 0.0, testGaugeValue(t, m.ConnectionState.WithLabelValues("ws", "disconnected")))
}

func TestEnabledDefaultsFalse(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "")
	assert.False(t, Enabled())
	t.Setenv("METRICS_ENABLED", "true")
	assert.True(t, Enabled())
}

func hasMetricFamily(families []*dto.MetricFamily, name string) bool {
	for _, f := range families {
		if f.GetName() == name {
			return true
		}
	}
	return false
}

func testGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, gauge.Write(&m))
	return m.GetGauge().GetValue()
}
