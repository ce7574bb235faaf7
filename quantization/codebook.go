package quantization

import (
	"fmt"
	"slices"

	"github.com/hupe1980/vecquant/internal/vecmath"
)

// Codebook is an ordered, immutable set of K centroids of equal dimension.
// It is safe for concurrent use.
type Codebook struct {
	k         int
	dim       int
	centroids []float64 // k * dim, centroid j at [j*dim:(j+1)*dim]
}

// NewCodebook builds a codebook from explicit centroids, e.g. when loading a
// persisted artifact. The input is copied.
func NewCodebook(centroids [][]float64) (*Codebook, error) {
	if len(centroids) == 0 {
		return nil, fmt.Errorf("%w: codebook needs at least one centroid", ErrConfig)
	}

	dim := len(centroids[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: centroid dimension must be positive", ErrConfig)
	}

	flat := make([]float64, 0, len(centroids)*dim)
	for j, c := range centroids {
		if len(c) != dim {
			return nil, fmt.Errorf("%w: centroid %d has dimension %d, expected %d", ErrConfig, j, len(c), dim)
		}
		flat = append(flat, c...)
	}

	return &Codebook{k: len(centroids), dim: dim, centroids: flat}, nil
}

// newCodebookFlat wraps a flat centroid slice without copying.
func newCodebookFlat(k, dim int, flat []float64) *Codebook {
	return &Codebook{k: k, dim: dim, centroids: flat}
}

// K returns the number of centroids.
func (cb *Codebook) K() int { return cb.k }

// Dim returns the centroid dimension.
func (cb *Codebook) Dim() int { return cb.dim }

// Centroid returns a copy of centroid j.
func (cb *Codebook) Centroid(j int) []float64 {
	return slices.Clone(cb.centroid(j))
}

func (cb *Codebook) centroid(j int) []float64 {
	return cb.centroids[j*cb.dim : (j+1)*cb.dim]
}

// Centroids returns a copy of all centroids.
func (cb *Codebook) Centroids() [][]float64 {
	out := make([][]float64, cb.k)
	for j := range out {
		out[j] = cb.Centroid(j)
	}
	return out
}

// Nearest returns the index of the centroid closest to v under L2 distance,
// the lowest index among equally close centroids.
func (cb *Codebook) Nearest(v []float64) (int, error) {
	if len(v) != cb.dim {
		return -1, dimensionMismatch("sample", cb.dim, len(v))
	}
	idx, _ := vecmath.Nearest(v, cb.centroids, cb.dim)
	return idx, nil
}

// Equal reports whether both codebooks hold bit-identical centroids in the
// same order.
func (cb *Codebook) Equal(o *Codebook) bool {
	return cb.k == o.k && cb.dim == o.dim && slices.Equal(cb.centroids, o.centroids)
}

// String implements fmt.Stringer.
func (cb *Codebook) String() string {
	return fmt.Sprintf("Codebook(k=%d, dim=%d)", cb.k, cb.dim)
}
