package vecquant

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}
	boom := errors.New("boom")

	mc.RecordQuantize(12, 3, time.Millisecond, nil)
	mc.RecordQuantize(12, 0, time.Millisecond, boom)
	mc.RecordTrain("pq", 2*time.Millisecond, nil)
	mc.RecordTrain("vq", 4*time.Millisecond, nil)
	mc.RecordEncode("pq", 100, time.Millisecond, nil)
	mc.RecordDecode("pq", 100, time.Millisecond, boom)
	mc.RecordLookup(50, time.Millisecond, nil)
	mc.RecordPersist("save", 640, time.Millisecond, nil)
	mc.RecordPersist("load", 0, time.Millisecond, boom)

	s := mc.GetStats()
	assert.Equal(t, int64(2), s.QuantizeCount)
	assert.Equal(t, int64(1), s.QuantizeErrors)
	assert.Equal(t, int64(12), s.QuantizedValues)
	assert.Equal(t, int64(3), s.ClampedValues)
	assert.Equal(t, int64(2), s.TrainCount)
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), s.TrainAvgNanos)
	assert.Equal(t, int64(100), s.EncodedRows)
	assert.Equal(t, int64(1), s.DecodeErrors)
	assert.Equal(t, int64(50), s.LookupRows)
	assert.Equal(t, int64(1), s.SaveCount)
	assert.Equal(t, int64(1), s.LoadCount)
	assert.Equal(t, int64(1), s.PersistErrors)
	assert.Equal(t, int64(640), s.PersistBytes)
}

func TestBasicMetricsCollector_Empty(t *testing.T) {
	var mc BasicMetricsCollector
	assert.Zero(t, mc.GetStats().LookupAvgNanos)
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if h := m.GetHistogram(); h != nil {
				total += float64(h.GetSampleCount())
			}
		}
	}
	return total
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	p.RecordQuantize(12, 3, time.Millisecond, nil)
	p.RecordTrain("pq", time.Millisecond, nil)
	p.RecordEncode("pq", 100, time.Millisecond, nil)
	p.RecordDecode("pq", 100, time.Millisecond, errors.New("boom"))
	p.RecordLookup(50, time.Millisecond, nil)
	p.RecordPersist("save", 640, time.Millisecond, nil)

	assert.Equal(t, 3.0, gatherValue(t, reg, "vecquant_clamped_values_total"))
	assert.Equal(t, 162.0, gatherValue(t, reg, "vecquant_rows_total"))
	assert.Equal(t, 640.0, gatherValue(t, reg, "vecquant_persist_bytes_total"))
	assert.Equal(t, 6.0, gatherValue(t, reg, "vecquant_operation_latency_seconds"))

	_, err = NewPrometheusCollector(reg)
	assert.Error(t, err)
}

func TestNoopMetricsCollector(t *testing.T) {
	var mc MetricsCollector = NoopMetricsCollector{}
	mc.RecordQuantize(1, 0, 0, nil)
	mc.RecordPersist("save", 1, 0, nil)
}
