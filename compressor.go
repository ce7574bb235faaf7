package vecquant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecquant/blobstore"
	"github.com/hupe1980/vecquant/metric"
	"github.com/hupe1980/vecquant/persistence"
	"github.com/hupe1980/vecquant/quantization"
	"github.com/hupe1980/vecquant/tensor"
)

var errNilTensor = fmt.Errorf("%w: nil tensor", ErrUsage)

// Compressor is the entry point for quantizing, training, encoding, querying
// and persisting. It carries the shared configuration, logger, metrics and
// artifact store. A Compressor is safe for concurrent use.
type Compressor struct {
	opts options
}

// New creates a Compressor.
func New(optFns ...Option) (*Compressor, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	if o.maxIterations < 1 {
		return nil, fmt.Errorf("%w: max iterations must be positive, got %d", ErrConfig, o.maxIterations)
	}
	if o.tolerance < 0 {
		return nil, fmt.Errorf("%w: tolerance must be non-negative, got %v", ErrConfig, o.tolerance)
	}
	if o.compression > CompressionZSTD {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrConfig, uint8(o.compression))
	}
	if o.store == nil {
		o.store = blobstore.NewMemoryStore()
	}

	return &Compressor{opts: o}, nil
}

// Logger returns the configured logger.
func (c *Compressor) Logger() *Logger { return c.opts.logger }

// Store returns the artifact store.
func (c *Compressor) Store() blobstore.BlobStore { return c.opts.store }

func (c *Compressor) clusterConfig(k int) quantization.ClusterConfig {
	return quantization.ClusterConfig{
		K:             k,
		Seed:          c.opts.seed,
		MaxIterations: c.opts.maxIterations,
		Tolerance:     c.opts.tolerance,
		Workers:       c.opts.workers,
	}
}

func methodName(t quantization.Type) string {
	return strings.ToLower(t.String())
}

// Quantize applies uniform symmetric quantization with a scale derived from
// the largest magnitude of x.
func (c *Compressor) Quantize(ctx context.Context, x *tensor.Tensor, bits int) (*quantization.QuantizedTensor, error) {
	if x == nil {
		return nil, errNilTensor
	}
	start := time.Now()

	var uopts []quantization.UniformOption
	if c.opts.strictDegeneracy {
		uopts = append(uopts, quantization.WithStrictDegeneracy())
	}

	q, err := c.quantize(ctx, x, bits, uopts)
	c.opts.metricsCollector.RecordQuantize(x.Len(), 0, time.Since(start), err)

	scale := 0.0
	if q != nil {
		scale = q.Scale()
	}
	c.opts.logger.LogQuantize(ctx, x.Rows(), x.Cols(), bits, scale, err)
	return q, err
}

func (c *Compressor) quantize(ctx context.Context, x *tensor.Tensor, bits int, uopts []quantization.UniformOption) (*quantization.QuantizedTensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return quantization.Quantize(x, bits, uopts...)
}

// QuantizeWithScale quantizes x with an externally supplied scale. Values
// beyond ±qmax are clamped; clamping is reported, logged as a warning and
// counted, but is not an error.
func (c *Compressor) QuantizeWithScale(ctx context.Context, x *tensor.Tensor, scale float64, bits int) (*quantization.QuantizedTensor, *quantization.ClampReport, error) {
	if x == nil {
		return nil, nil, errNilTensor
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	q, report, err := quantization.QuantizeWithScale(x, scale, bits)

	clamped := 0
	if report.Any() {
		clamped = report.Count
		c.opts.logger.LogClamp(ctx, clamped, x.Len(), scale)
	}

	c.opts.metricsCollector.RecordQuantize(x.Len(), clamped, time.Since(start), err)
	c.opts.logger.LogQuantize(ctx, x.Rows(), x.Cols(), bits, scale, err)
	return q, report, err
}

// TrainVQ trains a vector quantizer with k centroids on x.
func (c *Compressor) TrainVQ(ctx context.Context, x *tensor.Tensor, k int, mode quantization.SampleMode) (*quantization.VectorQuantizer, error) {
	if x == nil {
		return nil, errNilTensor
	}
	start := time.Now()

	vq, err := quantization.NewVectorQuantizer(mode, c.clusterConfig(k))
	if err == nil {
		err = vq.Train(ctx, x)
	}

	d := time.Since(start)
	c.opts.metricsCollector.RecordTrain("vq", d, err)

	var stats quantization.TrainStats
	if err == nil {
		stats = vq.Stats()
	}
	c.opts.logger.WithDimension(x.Cols()).LogTrain(ctx, "vq", k, stats.Iterations, stats.Converged, d, err)

	if err != nil {
		return nil, err
	}
	return vq, nil
}

// TrainPQ trains a product quantizer with m subspaces of k centroids on x.
func (c *Compressor) TrainPQ(ctx context.Context, x *tensor.Tensor, m, k int) (*quantization.ProductQuantizer, error) {
	if x == nil {
		return nil, errNilTensor
	}
	start := time.Now()

	pq, err := quantization.NewProductQuantizer(x.Cols(), m, k,
		quantization.WithPQSeed(c.opts.seed),
		quantization.WithPQMaxIterations(c.opts.maxIterations),
		quantization.WithPQTolerance(c.opts.tolerance),
		quantization.WithPQWorkers(c.opts.workers),
	)
	if err == nil {
		err = pq.Train(ctx, x)
	}

	d := time.Since(start)
	c.opts.metricsCollector.RecordTrain("pq", d, err)

	iterations, converged := 0, err == nil
	if err == nil {
		for _, s := range pq.Stats() {
			iterations = max(iterations, s.Iterations)
			converged = converged && s.Converged
		}
	}
	c.opts.logger.WithDimension(x.Cols()).LogTrain(ctx, "pq", k, iterations, converged, d, err)

	if err != nil {
		return nil, err
	}
	return pq, nil
}

// Encode compresses x with q.
func (c *Compressor) Encode(ctx context.Context, q quantization.Quantizer, x *tensor.Tensor) (quantization.Artifact, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil quantizer", ErrUsage)
	}
	if x == nil {
		return nil, errNilTensor
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	a, err := q.Encode(x)

	method := methodName(q.Type())
	c.opts.metricsCollector.RecordEncode(method, x.Rows(), time.Since(start), err)
	c.opts.logger.LogEncode(ctx, "encode", method, x.Rows(), err)

	if err != nil {
		return nil, err
	}
	return a, nil
}

// Decode reconstructs a tensor from an artifact produced by q.
func (c *Compressor) Decode(ctx context.Context, q quantization.Quantizer, a quantization.Artifact) (*tensor.Tensor, error) {
	if q == nil || a == nil {
		return nil, fmt.Errorf("%w: quantizer and artifact are required", ErrUsage)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	x, err := q.Decode(a)

	rows, _ := a.Shape()
	method := methodName(q.Type())
	c.opts.metricsCollector.RecordDecode(method, rows, time.Since(start), err)
	c.opts.logger.LogEncode(ctx, "decode", method, rows, err)

	if err != nil {
		return nil, err
	}
	return x, nil
}

// QuantizerFor rebuilds a quantizer that decodes a, e.g. after Load.
// Product quantizers are returned trained and can serve lookups.
func (c *Compressor) QuantizerFor(a quantization.Artifact) (quantization.Quantizer, error) {
	switch a := a.(type) {
	case *quantization.QuantizedTensor:
		var uopts []quantization.UniformOption
		if c.opts.strictDegeneracy {
			uopts = append(uopts, quantization.WithStrictDegeneracy())
		}
		return quantization.NewUniformQuantizer(a.NumBits(), uopts...)
	case *quantization.VQArtifact:
		return quantization.NewTrainedVectorQuantizer(a.Codebook(), a.Mode())
	case *quantization.PQArtifact:
		return quantization.NewTrainedProductQuantizer(a.Codebooks(), quantization.WithPQWorkers(c.opts.workers))
	default:
		return nil, fmt.Errorf("%w: unsupported artifact %T", ErrUsage, a)
	}
}

// DotProducts returns approximate dot products of query with the encoded
// rows selected by rows (nil selects all), in ascending row order.
func (c *Compressor) DotProducts(ctx context.Context, pq *quantization.ProductQuantizer, codes *quantization.CodeMatrix, query []float64, rows *roaring.Bitmap) ([]quantization.RowScore, error) {
	return c.lookup(ctx, pq, codes, query, func(e *quantization.LookupEngine, t *quantization.LookupTables) ([]quantization.RowScore, error) {
		return e.ApproxDotSelected(ctx, codes, t, rows)
	})
}

// TopK returns the k selected rows with the largest approximate dot product
// with query, best first.
func (c *Compressor) TopK(ctx context.Context, pq *quantization.ProductQuantizer, codes *quantization.CodeMatrix, query []float64, k int, rows *roaring.Bitmap) ([]quantization.RowScore, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %w: got %d", ErrUsage, ErrInvalidK, k)
	}
	return c.lookup(ctx, pq, codes, query, func(e *quantization.LookupEngine, t *quantization.LookupTables) ([]quantization.RowScore, error) {
		return e.TopK(ctx, codes, t, k, rows)
	})
}

func (c *Compressor) lookup(
	ctx context.Context,
	pq *quantization.ProductQuantizer,
	codes *quantization.CodeMatrix,
	query []float64,
	run func(*quantization.LookupEngine, *quantization.LookupTables) ([]quantization.RowScore, error),
) ([]quantization.RowScore, error) {
	start := time.Now()

	scores, err := func() ([]quantization.RowScore, error) {
		if codes == nil {
			return nil, fmt.Errorf("%w: nil codes", ErrUsage)
		}
		engine, err := quantization.NewLookupEngine(pq, c.opts.workers)
		if err != nil {
			return nil, err
		}
		tables, err := engine.BuildTables(query)
		if err != nil {
			return nil, err
		}
		return run(engine, tables)
	}()

	n := 0
	if codes != nil {
		n = codes.Rows()
	}
	c.opts.metricsCollector.RecordLookup(n, time.Since(start), err)
	c.opts.logger.LogLookup(ctx, n, len(scores), err)

	if err != nil {
		return nil, err
	}
	return scores, nil
}

// Save writes a to the artifact store under name.
func (c *Compressor) Save(ctx context.Context, name string, a quantization.Artifact) (*persistence.Header, error) {
	start := time.Now()

	h, err := persistence.Save(ctx, c.opts.store, name, a,
		persistence.WithCodec(c.opts.codec),
		persistence.WithCompression(c.opts.compression),
	)

	var size uint64
	if h != nil {
		size = persistence.HeaderSize + h.StoredSize
	}
	c.opts.metricsCollector.RecordPersist("save", int64(size), time.Since(start), err)
	c.opts.logger.LogSave(ctx, name, size, err)
	return h, err
}

// Load reads the artifact stored under name.
func (c *Compressor) Load(ctx context.Context, name string) (quantization.Artifact, *persistence.Header, error) {
	start := time.Now()

	a, h, err := persistence.Load(ctx, c.opts.store, name)

	var size int64
	if h != nil {
		size = int64(persistence.HeaderSize + h.StoredSize)
	}
	c.opts.metricsCollector.RecordPersist("load", size, time.Since(start), err)
	c.opts.logger.LogLoad(ctx, name, err)
	return a, h, err
}

// List returns the names of stored artifacts with the given prefix.
func (c *Compressor) List(ctx context.Context, prefix string) ([]string, error) {
	return c.opts.store.List(ctx, prefix)
}

// Evaluate measures how well reconstructed approximates x.
func (c *Compressor) Evaluate(x, reconstructed *tensor.Tensor) (metric.Report, error) {
	return metric.Evaluate(x, reconstructed)
}
