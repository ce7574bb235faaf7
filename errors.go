package vecquant

import (
	"errors"

	"github.com/hupe1980/vecquant/blobstore"
	"github.com/hupe1980/vecquant/persistence"
	"github.com/hupe1980/vecquant/quantization"
)

// Error taxonomy shared with the quantization package, so callers only need
// to import vecquant for errors.Is checks.
var (
	ErrConfig              = quantization.ErrConfig
	ErrUsage               = quantization.ErrUsage
	ErrNumericalDegeneracy = quantization.ErrNumericalDegeneracy
	ErrNotTrained          = quantization.ErrNotTrained
	ErrAlreadyTrained      = quantization.ErrAlreadyTrained

	// ErrNotFound is returned when a named artifact does not exist.
	ErrNotFound = blobstore.ErrNotFound

	// ErrChecksumMismatch is returned when a stored artifact is corrupted.
	ErrChecksumMismatch = persistence.ErrChecksumMismatch

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("vecquant: k must be positive")
)

// ErrDimensionMismatch indicates a shape mismatch. It matches ErrUsage.
type ErrDimensionMismatch = quantization.ErrDimensionMismatch

// ErrInvalidBits indicates a bit width outside [2, 32]. It matches ErrConfig.
type ErrInvalidBits = quantization.ErrInvalidBits
