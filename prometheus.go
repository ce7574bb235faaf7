package vecquant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements MetricsCollector with Prometheus metrics.
type PrometheusCollector struct {
	opLatency   *prometheus.HistogramVec
	rows        *prometheus.CounterVec
	clamped     prometheus.Counter
	persistSize *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. Pass prometheus.DefaultRegisterer to expose them via
// promhttp.Handler.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	p := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vecquant_operation_latency_seconds",
			Help:    "Latency of vecquant operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "method", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vecquant_rows_total",
			Help: "Rows (or values for uniform quantization) processed",
		}, []string{"op", "method"}),
		clamped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vecquant_clamped_values_total",
			Help: "Values clamped to the representable code range",
		}),
		persistSize: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vecquant_persist_bytes_total",
			Help: "Artifact bytes saved and loaded",
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{p.opLatency, p.rows, p.clamped, p.persistSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordQuantize implements MetricsCollector.
func (p *PrometheusCollector) RecordQuantize(values, clamped int, d time.Duration, err error) {
	p.opLatency.WithLabelValues("quantize", "uniform", status(err)).Observe(d.Seconds())
	if err == nil {
		p.rows.WithLabelValues("quantize", "uniform").Add(float64(values))
		p.clamped.Add(float64(clamped))
	}
}

// RecordTrain implements MetricsCollector.
func (p *PrometheusCollector) RecordTrain(method string, d time.Duration, err error) {
	p.opLatency.WithLabelValues("train", method, status(err)).Observe(d.Seconds())
}

// RecordEncode implements MetricsCollector.
func (p *PrometheusCollector) RecordEncode(method string, rows int, d time.Duration, err error) {
	p.opLatency.WithLabelValues("encode", method, status(err)).Observe(d.Seconds())
	if err == nil {
		p.rows.WithLabelValues("encode", method).Add(float64(rows))
	}
}

// RecordDecode implements MetricsCollector.
func (p *PrometheusCollector) RecordDecode(method string, rows int, d time.Duration, err error) {
	p.opLatency.WithLabelValues("decode", method, status(err)).Observe(d.Seconds())
	if err == nil {
		p.rows.WithLabelValues("decode", method).Add(float64(rows))
	}
}

// RecordLookup implements MetricsCollector.
func (p *PrometheusCollector) RecordLookup(rows int, d time.Duration, err error) {
	p.opLatency.WithLabelValues("lookup", "pq", status(err)).Observe(d.Seconds())
	if err == nil {
		p.rows.WithLabelValues("lookup", "pq").Add(float64(rows))
	}
}

// RecordPersist implements MetricsCollector.
func (p *PrometheusCollector) RecordPersist(op string, bytes int64, d time.Duration, err error) {
	p.opLatency.WithLabelValues(op, "", status(err)).Observe(d.Seconds())
	if err == nil {
		p.persistSize.WithLabelValues(op).Add(float64(bytes))
	}
}

var _ MetricsCollector = (*PrometheusCollector)(nil)
