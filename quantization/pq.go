package quantization

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecquant/tensor"
)

// ProductQuantizer implements Product Quantization (PQ).
// PQ splits every row into M equal subvectors and quantizes each subspace
// independently with its own k-means codebook.
//
// Example: 128-dim rows with M=8 and K=256 → 8 codes per row.
type ProductQuantizer struct {
	numSubvectors int // M: number of subvectors
	numCentroids  int // K: number of centroids per subspace
	dimension     int // D: row dimension
	subvectorDim  int // D/M: dimensions per subvector
	cfg           ClusterConfig
	workers       int
	state         atomic.Pointer[pqState]
}

type pqState struct {
	codebooks []*Codebook
	stats     []TrainStats
}

type pqOptions struct {
	seed          uint64
	maxIterations int
	tolerance     float64
	workers       int
}

// PQOption configures a ProductQuantizer.
type PQOption func(*pqOptions)

// WithPQSeed sets the clustering seed shared by all subspaces.
func WithPQSeed(seed uint64) PQOption {
	return func(o *pqOptions) { o.seed = seed }
}

// WithPQMaxIterations bounds the Lloyd iterations per subspace.
func WithPQMaxIterations(n int) PQOption {
	return func(o *pqOptions) { o.maxIterations = n }
}

// WithPQTolerance sets the per-subspace convergence tolerance.
func WithPQTolerance(tol float64) PQOption {
	return func(o *pqOptions) { o.tolerance = tol }
}

// WithPQWorkers bounds the number of subspaces trained and rows encoded
// concurrently (<= 0: GOMAXPROCS).
func WithPQWorkers(n int) PQOption {
	return func(o *pqOptions) { o.workers = n }
}

// NewProductQuantizer creates an untrained PQ quantizer.
// Parameters:
//   - dimension: Row dimensionality (must be divisible by numSubvectors)
//   - numSubvectors: Number of subspaces M
//   - numCentroids: Number of centroids per subspace K
func NewProductQuantizer(dimension, numSubvectors, numCentroids int, optFns ...PQOption) (*ProductQuantizer, error) {
	if dimension <= 0 || numSubvectors <= 0 {
		return nil, fmt.Errorf("%w: dimension and numSubvectors must be positive", ErrConfig)
	}
	if dimension%numSubvectors != 0 {
		return nil, fmt.Errorf("%w: dimension %d not divisible by %d subvectors", ErrConfig, dimension, numSubvectors)
	}

	o := pqOptions{
		maxIterations: DefaultMaxIterations,
		tolerance:     DefaultTolerance,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	cfg := ClusterConfig{
		K:             numCentroids,
		Seed:          o.seed,
		MaxIterations: o.maxIterations,
		Tolerance:     o.tolerance,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	workers := o.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &ProductQuantizer{
		numSubvectors: numSubvectors,
		numCentroids:  numCentroids,
		dimension:     dimension,
		subvectorDim:  dimension / numSubvectors,
		cfg:           cfg,
		workers:       workers,
	}, nil
}

// NewTrainedProductQuantizer wraps existing per-subspace codebooks, e.g.
// loaded from a persisted artifact. All codebooks must share K and
// dimension.
func NewTrainedProductQuantizer(codebooks []*Codebook, optFns ...PQOption) (*ProductQuantizer, error) {
	if err := validateCodebooks(codebooks); err != nil {
		return nil, err
	}

	m := len(codebooks)
	pq, err := NewProductQuantizer(m*codebooks[0].Dim(), m, codebooks[0].K(), optFns...)
	if err != nil {
		return nil, err
	}

	pq.state.Store(&pqState{codebooks: append([]*Codebook(nil), codebooks...)})
	return pq, nil
}

func validateCodebooks(codebooks []*Codebook) error {
	if len(codebooks) == 0 {
		return fmt.Errorf("%w: at least one codebook required", ErrConfig)
	}
	for i, cb := range codebooks {
		if cb == nil {
			return fmt.Errorf("%w: codebook %d is nil", ErrConfig, i)
		}
		if cb.K() != codebooks[0].K() || cb.Dim() != codebooks[0].Dim() {
			return fmt.Errorf("%w: codebook %d is %dx%d, expected %dx%d",
				ErrConfig, i, cb.K(), cb.Dim(), codebooks[0].K(), codebooks[0].Dim())
		}
	}
	return nil
}

// Type implements Quantizer.
func (pq *ProductQuantizer) Type() Type { return TypePQ }

// NumSubvectors returns the number of subvectors (M).
func (pq *ProductQuantizer) NumSubvectors() int { return pq.numSubvectors }

// NumCentroids returns the number of centroids per subspace (K).
func (pq *ProductQuantizer) NumCentroids() int { return pq.numCentroids }

// Dimension returns the row dimension (D).
func (pq *ProductQuantizer) Dimension() int { return pq.dimension }

// SubvectorDim returns D/M.
func (pq *ProductQuantizer) SubvectorDim() int { return pq.subvectorDim }

// IsTrained returns whether the quantizer has been trained.
func (pq *ProductQuantizer) IsTrained() bool { return pq.state.Load() != nil }

// Codebooks returns the M codebooks or ErrNotTrained. The codebooks are
// immutable; the returned slice is a copy.
func (pq *ProductQuantizer) Codebooks() ([]*Codebook, error) {
	s := pq.state.Load()
	if s == nil {
		return nil, ErrNotTrained
	}
	return append([]*Codebook(nil), s.codebooks...), nil
}

// Stats returns per-subspace training statistics (nil for loaded codebooks).
func (pq *ProductQuantizer) Stats() []TrainStats {
	if s := pq.state.Load(); s != nil {
		return append([]TrainStats(nil), s.stats...)
	}
	return nil
}

// BitsPerCode returns the number of bits needed to store one subspace code.
func (pq *ProductQuantizer) BitsPerCode() int {
	if pq.numCentroids <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(pq.numCentroids))))
}

// CompressionRatio returns the theoretical ratio of float64 row storage to
// packed code storage.
func (pq *ProductQuantizer) CompressionRatio() float64 {
	originalBits := pq.dimension * 64
	compressedBits := pq.numSubvectors * pq.BitsPerCode()
	return float64(originalBits) / float64(compressedBits)
}

// Train learns one codebook per subspace from the rows of x. Subspaces are
// trained concurrently and share the configured seed.
func (pq *ProductQuantizer) Train(ctx context.Context, x *tensor.Tensor) error {
	if pq.IsTrained() {
		return ErrAlreadyTrained
	}
	if x.Cols() != pq.dimension {
		return dimensionMismatch("row", pq.dimension, x.Cols())
	}
	if !x.IsFinite() {
		return fmt.Errorf("%w: tensor contains NaN or infinite values", ErrNumericalDegeneracy)
	}
	if pq.numCentroids > x.Rows() {
		return fmt.Errorf("%w: %d centroids requested from %d rows", ErrConfig, pq.numCentroids, x.Rows())
	}

	codebooks := make([]*Codebook, pq.numSubvectors)
	stats := make([]TrainStats, pq.numSubvectors)

	cfg := pq.cfg
	cfg.Workers = max(1, pq.workers/pq.numSubvectors)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pq.workers)
	for m := 0; m < pq.numSubvectors; m++ {
		g.Go(func() error {
			start := m * pq.subvectorDim
			sub, err := x.ColumnSlice(start, start+pq.subvectorDim)
			if err != nil {
				return err
			}

			cb, st, err := trainFlat(gctx, sub.RawData(), pq.subvectorDim, cfg)
			if err != nil {
				return err
			}
			codebooks[m] = cb
			stats[m] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !pq.state.CompareAndSwap(nil, &pqState{codebooks: codebooks, stats: stats}) {
		return ErrAlreadyTrained
	}
	return nil
}

// EncodeCodes returns the rows x M code matrix of x.
func (pq *ProductQuantizer) EncodeCodes(x *tensor.Tensor) (*CodeMatrix, error) {
	s := pq.state.Load()
	if s == nil {
		return nil, ErrNotTrained
	}
	return encodePQ(x, s.codebooks, pq.workers)
}

// DecodeCodes reconstructs rows by concatenating the selected centroids.
func (pq *ProductQuantizer) DecodeCodes(codes *CodeMatrix) (*tensor.Tensor, error) {
	s := pq.state.Load()
	if s == nil {
		return nil, ErrNotTrained
	}
	return DecodePQ(codes, s.codebooks)
}

// Encode implements Quantizer.
func (pq *ProductQuantizer) Encode(x *tensor.Tensor) (Artifact, error) {
	s := pq.state.Load()
	if s == nil {
		return nil, ErrNotTrained
	}
	codes, err := encodePQ(x, s.codebooks, pq.workers)
	if err != nil {
		return nil, err
	}
	return &PQArtifact{codebooks: s.codebooks, codes: codes}, nil
}

// Decode implements Quantizer.
func (pq *ProductQuantizer) Decode(a Artifact) (*tensor.Tensor, error) {
	if !pq.IsTrained() {
		return nil, ErrNotTrained
	}
	art, ok := a.(*PQArtifact)
	if !ok || art == nil {
		return nil, fmt.Errorf("%w: product quantizer cannot decode %s artifact", ErrUsage, artifactType(a))
	}
	if !sameCodebooks(art.codebooks, pq.state.Load().codebooks) {
		return nil, fmt.Errorf("%w: artifact was encoded with different codebooks", ErrUsage)
	}
	return pq.DecodeCodes(art.codes)
}

func sameCodebooks(a, b []*Codebook) bool {
	return slices.EqualFunc(a, b, func(x, y *Codebook) bool {
		return x != nil && y != nil && x.Equal(y)
	})
}

// EncodePQ assigns every subvector of every row of x to its nearest centroid
// in the codebook of its subspace.
func EncodePQ(x *tensor.Tensor, codebooks []*Codebook) (*CodeMatrix, error) {
	if err := validateCodebooks(codebooks); err != nil {
		return nil, err
	}
	return encodePQ(x, codebooks, 0)
}

func encodePQ(x *tensor.Tensor, codebooks []*Codebook, workers int) (*CodeMatrix, error) {
	m := len(codebooks)
	subDim := codebooks[0].Dim()
	if x.Cols() != m*subDim {
		return nil, dimensionMismatch("row", m*subDim, x.Cols())
	}

	codes := make([]int32, x.Rows()*m)
	err := parallelRows(context.Background(), x.Rows(), workers, func(start, end int) error {
		for r := start; r < end; r++ {
			row := x.RawRowView(r)
			for i, cb := range codebooks {
				idx, _ := cb.Nearest(row[i*subDim : (i+1)*subDim])
				codes[r*m+i] = int32(idx)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CodeMatrix{rows: x.Rows(), cols: m, codes: codes}, nil
}

// DecodePQ reconstructs every row as the concatenation of
// codebooks[i][codes[r,i]] for i = 0..M-1.
func DecodePQ(codes *CodeMatrix, codebooks []*Codebook) (*tensor.Tensor, error) {
	if err := validateCodebooks(codebooks); err != nil {
		return nil, err
	}
	m := len(codebooks)
	if codes.cols != m {
		return nil, dimensionMismatch("code matrix columns", m, codes.cols)
	}
	if err := codes.checkRange(codebooks[0].K()); err != nil {
		return nil, err
	}

	subDim := codebooks[0].Dim()
	data := make([]float64, 0, codes.rows*m*subDim)
	for r := 0; r < codes.rows; r++ {
		for i, c := range codes.row(r) {
			data = append(data, codebooks[i].centroid(int(c))...)
		}
	}

	return tensor.New(codes.rows, m*subDim, data)
}
