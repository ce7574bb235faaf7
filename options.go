package vecquant

import (
	"log/slog"

	"github.com/hupe1980/vecquant/blobstore"
	"github.com/hupe1980/vecquant/codec"
	"github.com/hupe1980/vecquant/internal/compress"
	"github.com/hupe1980/vecquant/quantization"
)

// Compression selects the payload compression of saved artifacts.
type Compression = compress.Type

// Supported payload compressions.
const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return compress.Parse(s)
}

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	store            blobstore.BlobStore
	codec            codec.Codec
	compression      Compression
	workers          int
	seed             uint64
	maxIterations    int
	tolerance        float64
	strictDegeneracy bool
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		codec:            codec.Default,
		compression:      CompressionNone,
		maxIterations:    quantization.DefaultMaxIterations,
		tolerance:        quantization.DefaultTolerance,
	}
}

// Option configures a Compressor.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel logs human-readable text to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets the metrics collector. If nil is passed,
// NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithBlobStore sets where Save and Load keep artifacts.
// Defaults to an in-memory store.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCodec configures the codec used for artifact payloads.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets the payload compression of saved artifacts.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithWorkers bounds the parallelism of training, encoding and lookups.
// Values <= 0 mean GOMAXPROCS. Results do not depend on the worker count.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithSeed sets the seed of codebook initialization.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithMaxIterations bounds the number of Lloyd iterations.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithTolerance sets the convergence tolerance of codebook training.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		o.tolerance = tol
	}
}

// WithStrictDegeneracy makes Quantize reject all-zero input with
// ErrNumericalDegeneracy instead of returning zero codes.
func WithStrictDegeneracy() Option {
	return func(o *options) {
		o.strictDegeneracy = true
	}
}
