package quantization

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/vecquant/tensor"
)

// VectorQuantizer replaces every sample (a scalar element or a whole row,
// depending on the SampleMode) by the index of its nearest codebook centroid.
//
// A VectorQuantizer starts untrained and becomes trained exactly once. After
// training it is immutable and safe for concurrent use.
type VectorQuantizer struct {
	mode  SampleMode
	cfg   ClusterConfig
	state atomic.Pointer[vqState]
}

type vqState struct {
	codebook *Codebook
	stats    TrainStats
}

// NewVectorQuantizer creates an untrained vector quantizer.
func NewVectorQuantizer(mode SampleMode, cfg ClusterConfig) (*VectorQuantizer, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: invalid sample mode %d", ErrConfig, mode)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &VectorQuantizer{mode: mode, cfg: cfg}, nil
}

// NewTrainedVectorQuantizer wraps an existing codebook, e.g. one loaded from
// a persisted artifact.
func NewTrainedVectorQuantizer(cb *Codebook, mode SampleMode) (*VectorQuantizer, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("%w: invalid sample mode %d", ErrConfig, mode)
	}
	if cb == nil {
		return nil, fmt.Errorf("%w: nil codebook", ErrConfig)
	}
	if mode == SampleScalars && cb.Dim() != 1 {
		return nil, fmt.Errorf("%w: scalar sampling needs a 1-dimensional codebook, got %d", ErrConfig, cb.Dim())
	}

	vq := &VectorQuantizer{mode: mode, cfg: DefaultClusterConfig(cb.K())}
	vq.state.Store(&vqState{codebook: cb})
	return vq, nil
}

// Type implements Quantizer.
func (vq *VectorQuantizer) Type() Type { return TypeVQ }

// Mode returns the sample mode.
func (vq *VectorQuantizer) Mode() SampleMode { return vq.mode }

// IsTrained returns whether the quantizer has been trained.
func (vq *VectorQuantizer) IsTrained() bool { return vq.state.Load() != nil }

// Codebook returns the trained codebook or ErrNotTrained.
func (vq *VectorQuantizer) Codebook() (*Codebook, error) {
	s := vq.state.Load()
	if s == nil {
		return nil, ErrNotTrained
	}
	return s.codebook, nil
}

// Stats returns the training statistics (zero for loaded codebooks).
func (vq *VectorQuantizer) Stats() TrainStats {
	if s := vq.state.Load(); s != nil {
		return s.stats
	}
	return TrainStats{}
}

// Train learns the codebook from x. It fails with ErrAlreadyTrained on a
// trained quantizer.
func (vq *VectorQuantizer) Train(ctx context.Context, x *tensor.Tensor) error {
	if vq.IsTrained() {
		return ErrAlreadyTrained
	}
	if !x.IsFinite() {
		return fmt.Errorf("%w: tensor contains NaN or infinite values", ErrNumericalDegeneracy)
	}

	dim := 1
	if vq.mode == SampleRows {
		dim = x.Cols()
	}

	cb, stats, err := trainFlat(ctx, x.RawData(), dim, vq.cfg)
	if err != nil {
		return err
	}

	if !vq.state.CompareAndSwap(nil, &vqState{codebook: cb, stats: stats}) {
		return ErrAlreadyTrained
	}
	return nil
}

// EncodeCodes assigns every sample of x to its nearest centroid.
func (vq *VectorQuantizer) EncodeCodes(x *tensor.Tensor) (*CodeMatrix, error) {
	cb, err := vq.Codebook()
	if err != nil {
		return nil, err
	}
	return EncodeVQ(x, cb, vq.mode)
}

// DecodeCodes gathers the centroid of every code.
func (vq *VectorQuantizer) DecodeCodes(codes *CodeMatrix) (*tensor.Tensor, error) {
	cb, err := vq.Codebook()
	if err != nil {
		return nil, err
	}
	return DecodeVQ(codes, cb, vq.mode)
}

// Encode implements Quantizer.
func (vq *VectorQuantizer) Encode(x *tensor.Tensor) (Artifact, error) {
	cb, err := vq.Codebook()
	if err != nil {
		return nil, err
	}
	codes, err := EncodeVQ(x, cb, vq.mode)
	if err != nil {
		return nil, err
	}
	return &VQArtifact{mode: vq.mode, codebook: cb, codes: codes}, nil
}

// Decode implements Quantizer.
func (vq *VectorQuantizer) Decode(a Artifact) (*tensor.Tensor, error) {
	if !vq.IsTrained() {
		return nil, ErrNotTrained
	}
	art, ok := a.(*VQArtifact)
	if !ok || art == nil {
		return nil, fmt.Errorf("%w: vector quantizer cannot decode %s artifact", ErrUsage, artifactType(a))
	}
	if art.mode != vq.mode {
		return nil, fmt.Errorf("%w: artifact sample mode %s, quantizer %s", ErrUsage, art.mode, vq.mode)
	}
	if cb := vq.state.Load().codebook; art.codebook == nil || !art.codebook.Equal(cb) {
		return nil, fmt.Errorf("%w: artifact was encoded with a different codebook", ErrUsage)
	}
	return vq.DecodeCodes(art.codes)
}

// EncodeVQ assigns every sample of x to its nearest centroid of cb.
// Scalar sampling yields a code matrix of the shape of x, row sampling one
// code per row.
func EncodeVQ(x *tensor.Tensor, cb *Codebook, mode SampleMode) (*CodeMatrix, error) {
	data := x.RawData()

	switch mode {
	case SampleScalars:
		if cb.Dim() != 1 {
			return nil, dimensionMismatch("codebook", 1, cb.Dim())
		}
		codes := make([]int32, len(data))
		err := parallelRows(context.Background(), len(data), 0, func(start, end int) error {
			for i := start; i < end; i++ {
				idx, _ := cb.Nearest(data[i : i+1])
				codes[i] = int32(idx)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &CodeMatrix{rows: x.Rows(), cols: x.Cols(), codes: codes}, nil

	case SampleRows:
		if x.Cols() != cb.Dim() {
			return nil, dimensionMismatch("row", cb.Dim(), x.Cols())
		}
		codes := make([]int32, x.Rows())
		err := parallelRows(context.Background(), x.Rows(), 0, func(start, end int) error {
			for i := start; i < end; i++ {
				idx, _ := cb.Nearest(x.RawRowView(i))
				codes[i] = int32(idx)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &CodeMatrix{rows: x.Rows(), cols: 1, codes: codes}, nil

	default:
		return nil, fmt.Errorf("%w: invalid sample mode %d", ErrConfig, mode)
	}
}

// DecodeVQ replaces every code by its centroid. Reconstruction is exact for
// samples that lie on a centroid.
func DecodeVQ(codes *CodeMatrix, cb *Codebook, mode SampleMode) (*tensor.Tensor, error) {
	if err := codes.checkRange(cb.K()); err != nil {
		return nil, err
	}

	switch mode {
	case SampleScalars:
		if cb.Dim() != 1 {
			return nil, dimensionMismatch("codebook", 1, cb.Dim())
		}
		data := make([]float64, len(codes.codes))
		for i, c := range codes.codes {
			data[i] = cb.centroids[c]
		}
		return tensor.New(codes.rows, codes.cols, data)

	case SampleRows:
		if codes.cols != 1 {
			return nil, dimensionMismatch("code matrix columns", 1, codes.cols)
		}
		dim := cb.Dim()
		data := make([]float64, 0, codes.rows*dim)
		for _, c := range codes.codes {
			data = append(data, cb.centroid(int(c))...)
		}
		return tensor.New(codes.rows, dim, data)

	default:
		return nil, fmt.Errorf("%w: invalid sample mode %d", ErrConfig, mode)
	}
}
