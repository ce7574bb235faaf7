package vecquant

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems;
// NewPrometheusCollector provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordQuantize is called after each uniform quantization.
	// values is the number of quantized elements, clamped the number of
	// elements clamped to ±qmax.
	RecordQuantize(values, clamped int, duration time.Duration, err error)

	// RecordTrain is called after each codebook training run.
	// method is "vq" or "pq".
	RecordTrain(method string, duration time.Duration, err error)

	// RecordEncode is called after each encode operation.
	RecordEncode(method string, rows int, duration time.Duration, err error)

	// RecordDecode is called after each decode operation.
	RecordDecode(method string, rows int, duration time.Duration, err error)

	// RecordLookup is called after each batch of approximate dot products.
	RecordLookup(rows int, duration time.Duration, err error)

	// RecordPersist is called after each save ("save") or load ("load").
	RecordPersist(op string, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordQuantize(int, int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordTrain(string, time.Duration, error)          {}
func (NoopMetricsCollector) RecordEncode(string, int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordDecode(string, int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordLookup(int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordPersist(string, int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	QuantizeCount    atomic.Int64
	QuantizeErrors   atomic.Int64
	QuantizedValues  atomic.Int64
	ClampedValues    atomic.Int64
	TrainCount       atomic.Int64
	TrainErrors      atomic.Int64
	TrainTotalNanos  atomic.Int64
	EncodeCount      atomic.Int64
	EncodeErrors     atomic.Int64
	EncodedRows      atomic.Int64
	DecodeCount      atomic.Int64
	DecodeErrors     atomic.Int64
	LookupCount      atomic.Int64
	LookupErrors     atomic.Int64
	LookupRows       atomic.Int64
	LookupTotalNanos atomic.Int64
	SaveCount        atomic.Int64
	LoadCount        atomic.Int64
	PersistErrors    atomic.Int64
	PersistBytes     atomic.Int64
}

// RecordQuantize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuantize(values, clamped int, _ time.Duration, err error) {
	b.QuantizeCount.Add(1)
	if err != nil {
		b.QuantizeErrors.Add(1)
		return
	}
	b.QuantizedValues.Add(int64(values))
	b.ClampedValues.Add(int64(clamped))
}

// RecordTrain implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrain(_ string, duration time.Duration, err error) {
	b.TrainCount.Add(1)
	b.TrainTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TrainErrors.Add(1)
	}
}

// RecordEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEncode(_ string, rows int, _ time.Duration, err error) {
	b.EncodeCount.Add(1)
	if err != nil {
		b.EncodeErrors.Add(1)
		return
	}
	b.EncodedRows.Add(int64(rows))
}

// RecordDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDecode(_ string, _ int, _ time.Duration, err error) {
	b.DecodeCount.Add(1)
	if err != nil {
		b.DecodeErrors.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(rows int, duration time.Duration, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
		return
	}
	b.LookupRows.Add(int64(rows))
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(op string, bytes int64, _ time.Duration, err error) {
	switch op {
	case "save":
		b.SaveCount.Add(1)
	case "load":
		b.LoadCount.Add(1)
	}
	if err != nil {
		b.PersistErrors.Add(1)
		return
	}
	b.PersistBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		QuantizeCount:   b.QuantizeCount.Load(),
		QuantizeErrors:  b.QuantizeErrors.Load(),
		QuantizedValues: b.QuantizedValues.Load(),
		ClampedValues:   b.ClampedValues.Load(),
		TrainCount:      b.TrainCount.Load(),
		TrainErrors:     b.TrainErrors.Load(),
		TrainAvgNanos:   avg(b.TrainTotalNanos.Load(), b.TrainCount.Load()),
		EncodeCount:     b.EncodeCount.Load(),
		EncodeErrors:    b.EncodeErrors.Load(),
		EncodedRows:     b.EncodedRows.Load(),
		DecodeCount:     b.DecodeCount.Load(),
		DecodeErrors:    b.DecodeErrors.Load(),
		LookupCount:     b.LookupCount.Load(),
		LookupErrors:    b.LookupErrors.Load(),
		LookupRows:      b.LookupRows.Load(),
		LookupAvgNanos:  avg(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
		SaveCount:       b.SaveCount.Load(),
		LoadCount:       b.LoadCount.Load(),
		PersistErrors:   b.PersistErrors.Load(),
		PersistBytes:    b.PersistBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	QuantizeCount   int64
	QuantizeErrors  int64
	QuantizedValues int64
	ClampedValues   int64
	TrainCount      int64
	TrainErrors     int64
	TrainAvgNanos   int64
	EncodeCount     int64
	EncodeErrors    int64
	EncodedRows     int64
	DecodeCount     int64
	DecodeErrors    int64
	LookupCount     int64
	LookupErrors    int64
	LookupRows      int64
	LookupAvgNanos  int64
	SaveCount       int64
	LoadCount       int64
	PersistErrors   int64
	PersistBytes    int64
}
