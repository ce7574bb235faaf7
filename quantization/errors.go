package quantization

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecquant/internal/kmeans"
)

var (
	// ErrConfig indicates an invalid static configuration such as a bit
	// width below 2, a dimension not divisible by the subspace count, or a
	// centroid count outside [1, samples].
	ErrConfig = errors.New("quantization: invalid configuration")

	// ErrUsage indicates an operation that is not valid in the current state
	// or for the given inputs (untrained quantizer, shape mismatch, code out
	// of range).
	ErrUsage = errors.New("quantization: invalid usage")

	// ErrNumericalDegeneracy indicates input whose value range cannot produce
	// a usable scale (all zero in strict mode, NaN or infinite values).
	ErrNumericalDegeneracy = errors.New("quantization: numerical degeneracy")

	// ErrNotTrained is returned by encode, decode and lookup operations on an
	// untrained quantizer.
	ErrNotTrained = fmt.Errorf("%w: quantizer not trained", ErrUsage)

	// ErrAlreadyTrained is returned when Train is called on a trained quantizer.
	ErrAlreadyTrained = fmt.Errorf("%w: quantizer already trained", ErrUsage)
)

// ErrDimensionMismatch indicates a vector, tensor or code shape that does not
// match what the quantizer or codebook expects. It matches ErrUsage.
type ErrDimensionMismatch struct {
	What     string
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("quantization: %s dimension mismatch: expected %d, got %d", e.What, e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return ErrUsage }

// ErrInvalidBits indicates an unsupported bit width. It matches ErrConfig.
type ErrInvalidBits struct {
	Bits int
}

func (e *ErrInvalidBits) Error() string {
	return fmt.Sprintf("quantization: invalid bit width %d: must be in [%d, %d]", e.Bits, MinBits, MaxBits)
}

func (e *ErrInvalidBits) Unwrap() error { return ErrConfig }

// ErrCodeOutOfRange indicates a code outside the valid range of its
// codebook or bit width. It matches ErrUsage.
type ErrCodeOutOfRange struct {
	Index int
	Code  int32
	Limit int
}

func (e *ErrCodeOutOfRange) Error() string {
	return fmt.Sprintf("quantization: code %d at position %d out of range (limit %d)", e.Code, e.Index, e.Limit)
}

func (e *ErrCodeOutOfRange) Unwrap() error { return ErrUsage }

func dimensionMismatch(what string, expected, actual int) error {
	return &ErrDimensionMismatch{What: what, Expected: expected, Actual: actual}
}

// translateError maps clustering errors onto the package taxonomy.
// Context errors pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, kmeans.ErrInvalidK),
		errors.Is(err, kmeans.ErrTooFewSamples),
		errors.Is(err, kmeans.ErrNoSamples),
		errors.Is(err, kmeans.ErrInvalidDimension),
		errors.Is(err, kmeans.ErrInvalidIterations),
		errors.Is(err, kmeans.ErrInvalidTolerance):
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return err
}
