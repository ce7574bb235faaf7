package quantization

import (
	"fmt"
	"math"
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/vecquant/tensor"
)

const (
	// MinBits is the smallest supported bit width (qmax = 1).
	MinBits = 2
	// MaxBits is the largest supported bit width; codes are stored as int32.
	MaxBits = 32
)

// QMax returns the largest representable magnitude 2^(numBits-1) - 1.
func QMax(numBits int) (int32, error) {
	if numBits < MinBits || numBits > MaxBits {
		return 0, &ErrInvalidBits{Bits: numBits}
	}
	return int32(uint32(1)<<(numBits-1) - 1), nil
}

// QuantizedTensor is the artifact of uniform symmetric quantization:
// x_ij ~ codes_ij * scale with every code in [-qmax, qmax].
type QuantizedTensor struct {
	rows    int
	cols    int
	numBits int
	scale   float64
	codes   []int32
}

// NewQuantizedTensor rebuilds a quantized tensor, validating the scale and
// the code range. The codes are copied.
func NewQuantizedTensor(rows, cols, numBits int, scale float64, codes []int32) (*QuantizedTensor, error) {
	qmax, err := QMax(numBits)
	if err != nil {
		return nil, err
	}
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: quantized tensor shape %dx%d", ErrUsage, rows, cols)
	}
	if len(codes) != rows*cols {
		return nil, dimensionMismatch("quantized tensor", rows*cols, len(codes))
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: scale must be positive and finite, got %v", ErrConfig, scale)
	}
	for i, c := range codes {
		if c < -qmax || c > qmax {
			return nil, &ErrCodeOutOfRange{Index: i, Code: c, Limit: int(qmax)}
		}
	}

	return &QuantizedTensor{rows: rows, cols: cols, numBits: numBits, scale: scale, codes: slices.Clone(codes)}, nil
}

// Type implements Artifact.
func (q *QuantizedTensor) Type() Type { return TypeUniform }

// Shape implements Artifact.
func (q *QuantizedTensor) Shape() (int, int) { return q.rows, q.cols }

// Scale returns the step size between adjacent codes.
func (q *QuantizedTensor) Scale() float64 { return q.scale }

// NumBits returns the bit width.
func (q *QuantizedTensor) NumBits() int { return q.numBits }

// QMax returns the code magnitude bound for the bit width.
func (q *QuantizedTensor) QMax() int32 {
	qmax, _ := QMax(q.numBits)
	return qmax
}

// At returns the code at row i, column j.
func (q *QuantizedTensor) At(i, j int) int32 { return q.codes[i*q.cols+j] }

// Codes returns a row-major copy of all codes.
func (q *QuantizedTensor) Codes() []int32 { return slices.Clone(q.codes) }

// Row returns a copy of the codes of row i.
func (q *QuantizedTensor) Row(i int) []int32 {
	return slices.Clone(q.codes[i*q.cols : (i+1)*q.cols])
}

// ClampReport lists the elements whose rounded code exceeded [-qmax, qmax]
// and was clamped. Positions are row-major element indices.
type ClampReport struct {
	Count int
	Mask  *bitset.BitSet
}

// Any reports whether any element was clamped.
func (r *ClampReport) Any() bool { return r != nil && r.Count > 0 }

// Positions returns the clamped element indices in ascending order.
func (r *ClampReport) Positions() []int {
	if !r.Any() {
		return nil
	}
	out := make([]int, 0, r.Count)
	for i, ok := r.Mask.NextSet(0); ok; i, ok = r.Mask.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

type uniformOptions struct {
	strict bool
}

// UniformOption configures uniform quantization.
type UniformOption func(*uniformOptions)

// WithStrictDegeneracy makes an all-zero input fail with
// ErrNumericalDegeneracy instead of producing scale 1 and zero codes.
func WithStrictDegeneracy() UniformOption {
	return func(o *uniformOptions) {
		o.strict = true
	}
}

// Quantize maps x linearly onto [-qmax, qmax] with scale = max|x| / qmax.
//
// Codes are rounded half away from zero. An all-zero tensor, or one whose
// range is so small that the scale underflows to zero, yields scale 1 and
// all-zero codes unless WithStrictDegeneracy is given. NaN or infinite
// values fail with ErrNumericalDegeneracy.
func Quantize(x *tensor.Tensor, numBits int, optFns ...UniformOption) (*QuantizedTensor, error) {
	var o uniformOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	qmax, err := QMax(numBits)
	if err != nil {
		return nil, err
	}
	if !x.IsFinite() {
		return nil, fmt.Errorf("%w: tensor contains NaN or infinite values", ErrNumericalDegeneracy)
	}

	maxVal := x.MaxAbs()
	scale := maxVal / float64(qmax)
	if !(scale > 0) {
		if o.strict {
			if maxVal == 0 {
				return nil, fmt.Errorf("%w: all elements are zero", ErrNumericalDegeneracy)
			}
			return nil, fmt.Errorf("%w: scale underflows for max |x| = %v", ErrNumericalDegeneracy, maxVal)
		}
		return &QuantizedTensor{
			rows:    x.Rows(),
			cols:    x.Cols(),
			numBits: numBits,
			scale:   1,
			codes:   make([]int32, x.Len()),
		}, nil
	}

	q, _ := quantize(x, scale, numBits, qmax)
	return q, nil
}

// QuantizeWithScale quantizes x against a caller supplied scale, typically
// calibrated on other data. Values beyond qmax*scale are clamped and listed
// in the returned report.
func QuantizeWithScale(x *tensor.Tensor, scale float64, numBits int) (*QuantizedTensor, *ClampReport, error) {
	qmax, err := QMax(numBits)
	if err != nil {
		return nil, nil, err
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, nil, fmt.Errorf("%w: scale must be positive and finite, got %v", ErrConfig, scale)
	}
	if !x.IsFinite() {
		return nil, nil, fmt.Errorf("%w: tensor contains NaN or infinite values", ErrNumericalDegeneracy)
	}

	q, report := quantize(x, scale, numBits, qmax)
	return q, report, nil
}

func quantize(x *tensor.Tensor, scale float64, numBits int, qmax int32) (*QuantizedTensor, *ClampReport) {
	data := x.RawData()
	codes := make([]int32, len(data))
	report := &ClampReport{Mask: bitset.New(uint(len(data)))}

	limit := float64(qmax)
	for i, v := range data {
		r := math.Round(v / scale)
		switch {
		case math.IsNaN(r):
			r = 0
		case r > limit:
			r = limit
			report.Count++
			report.Mask.Set(uint(i))
		case r < -limit:
			r = -limit
			report.Count++
			report.Mask.Set(uint(i))
		}
		codes[i] = int32(r)
	}

	return &QuantizedTensor{
		rows:    x.Rows(),
		cols:    x.Cols(),
		numBits: numBits,
		scale:   scale,
		codes:   codes,
	}, report
}

// Dequantize reconstructs codes_ij * scale.
func Dequantize(q *QuantizedTensor) (*tensor.Tensor, error) {
	data := make([]float64, len(q.codes))
	for i, c := range q.codes {
		data[i] = float64(c) * q.scale
	}
	return tensor.New(q.rows, q.cols, data)
}

// UniformQuantizer is the stateless Quantizer for uniform symmetric
// quantization at a fixed bit width.
type UniformQuantizer struct {
	numBits int
	opts    []UniformOption
}

// NewUniformQuantizer creates a uniform quantizer for numBits.
func NewUniformQuantizer(numBits int, optFns ...UniformOption) (*UniformQuantizer, error) {
	if _, err := QMax(numBits); err != nil {
		return nil, err
	}
	return &UniformQuantizer{numBits: numBits, opts: optFns}, nil
}

// Type implements Quantizer.
func (u *UniformQuantizer) Type() Type { return TypeUniform }

// NumBits returns the configured bit width.
func (u *UniformQuantizer) NumBits() int { return u.numBits }

// Quantize quantizes x at the configured bit width.
func (u *UniformQuantizer) Quantize(x *tensor.Tensor) (*QuantizedTensor, error) {
	return Quantize(x, u.numBits, u.opts...)
}

// Encode implements Quantizer.
func (u *UniformQuantizer) Encode(x *tensor.Tensor) (Artifact, error) {
	q, err := u.Quantize(x)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Decode implements Quantizer.
func (u *UniformQuantizer) Decode(a Artifact) (*tensor.Tensor, error) {
	q, ok := a.(*QuantizedTensor)
	if !ok || q == nil {
		return nil, fmt.Errorf("%w: uniform quantizer cannot decode %s artifact", ErrUsage, artifactType(a))
	}
	return Dequantize(q)
}
