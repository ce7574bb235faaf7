// Package metric measures how well a reconstructed tensor approximates its
// source.
package metric

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/vecquant/tensor"
)

// ErrShapeMismatch is returned when the compared tensors differ in shape.
var ErrShapeMismatch = errors.New("metric: shape mismatch")

// Magnitude calculates the magnitude (length) of a vector.
func Magnitude(v []float64) float64 {
	return floats.Norm(v, 2)
}

// CosineSimilarity calculates the cosine similarity between two vectors.
func CosineSimilarity(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, errors.New("vector sizes do not match")
	}

	magnitudeA := Magnitude(v1)
	magnitudeB := Magnitude(v2)

	// Avoid division by zero
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0, nil
	}

	return floats.Dot(v1, v2) / (magnitudeA * magnitudeB), nil
}

// MSE returns the mean squared element-wise error.
func MSE(original, reconstructed *tensor.Tensor) (float64, error) {
	if err := checkShape(original, reconstructed); err != nil {
		return 0, err
	}

	d := floats.Distance(original.RawData(), reconstructed.RawData(), 2)
	return d * d / float64(original.Len()), nil
}

// MaxAbsError returns the largest element-wise absolute error.
func MaxAbsError(original, reconstructed *tensor.Tensor) (float64, error) {
	if err := checkShape(original, reconstructed); err != nil {
		return 0, err
	}
	return floats.Distance(original.RawData(), reconstructed.RawData(), math.Inf(1)), nil
}

// SQNR returns the signal to quantization noise ratio in dB. A perfect
// reconstruction yields +Inf.
func SQNR(original, reconstructed *tensor.Tensor) (float64, error) {
	if err := checkShape(original, reconstructed); err != nil {
		return 0, err
	}

	signal := floats.Dot(original.RawData(), original.RawData())
	noise := floats.Distance(original.RawData(), reconstructed.RawData(), 2)
	noise *= noise

	if noise == 0 {
		return math.Inf(1), nil
	}
	if signal == 0 {
		return math.Inf(-1), nil
	}
	return 10 * math.Log10(signal/noise), nil
}

// Report bundles the reconstruction quality of one tensor.
type Report struct {
	MSE         float64 `json:"mse" yaml:"mse"`
	RMSE        float64 `json:"rmse" yaml:"rmse"`
	MaxAbsError float64 `json:"max_abs_error" yaml:"max_abs_error"`
	SQNR        float64 `json:"sqnr_db" yaml:"sqnr_db"`
}

// Evaluate computes all metrics of reconstructed against original.
func Evaluate(original, reconstructed *tensor.Tensor) (Report, error) {
	mse, err := MSE(original, reconstructed)
	if err != nil {
		return Report{}, err
	}
	maxAbs, _ := MaxAbsError(original, reconstructed)
	sqnr, _ := SQNR(original, reconstructed)

	return Report{
		MSE:         mse,
		RMSE:        math.Sqrt(mse),
		MaxAbsError: maxAbs,
		SQNR:        sqnr,
	}, nil
}

// String implements fmt.Stringer.
func (r Report) String() string {
	return fmt.Sprintf("mse=%.6g rmse=%.6g max_abs=%.6g sqnr=%.2fdB", r.MSE, r.RMSE, r.MaxAbsError, r.SQNR)
}

func checkShape(a, b *tensor.Tensor) error {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	return nil
}
