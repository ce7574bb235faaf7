package testutil

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/hupe1980/vecquant/tensor"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float64, minVal, maxVal float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float64()*span
	}
}

// Vector returns a vector with values in range [-1, 1).
func (r *RNG) Vector(dim int) []float64 {
	v := make([]float64, dim)
	r.FillUniformRange(v, -1, 1)
	return v
}

// UniformTensor generates a rows x cols tensor with values in range [-1, 1).
func (r *RNG) UniformTensor(rows, cols int) *tensor.Tensor {
	data := make([]float64, rows*cols)
	r.FillUniformRange(data, -1, 1)
	return mustTensor(rows, cols, data)
}

// GaussianTensor generates a rows x cols tensor from a standard normal
// distribution.
func (r *RNG) GaussianTensor(rows, cols int) *tensor.Tensor {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.rand.NormFloat64()
	}
	return mustTensor(rows, cols, data)
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float64, num)
	for i := range num {
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = r.rand.NormFloat64()
		}

		norm := floats.Norm(vec, 2)
		if norm == 0 {
			norm = 1
		}
		floats.Scale(1/norm, vec)
		vectors[i] = vec
	}

	return vectors
}

// ClusteredTensor generates rows clustered around random unit centroids.
// Row i belongs to cluster i % clusters.
func (r *RNG) ClusteredTensor(rows, cols, clusters int, spread float64) *tensor.Tensor {
	centroids := r.UnitVectors(clusters, cols)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, rows*cols)
	for i := range rows {
		centroid := centroids[i%clusters]
		for j := range cols {
			data[i*cols+j] = centroid[j] + r.rand.NormFloat64()*spread
		}
	}

	return mustTensor(rows, cols, data)
}

// ScoredRow is a row index with its exact dot product.
type ScoredRow struct {
	Row   int
	Score float64
}

// ExactDots returns the exact dot product of query with every row of x.
func ExactDots(query []float64, x *tensor.Tensor) []float64 {
	out := make([]float64, x.Rows())
	for i := range out {
		out[i] = floats.Dot(query, x.RawRowView(i))
	}
	return out
}

// ExactTopK returns the k rows with the largest dot product, best first.
func ExactTopK(query []float64, x *tensor.Tensor, k int) []ScoredRow {
	dots := ExactDots(query, x)
	rows := make([]ScoredRow, len(dots))
	for i, d := range dots {
		rows[i] = ScoredRow{Row: i, Score: d}
	}

	slices.SortStableFunc(rows, func(a, b ScoredRow) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return rows[:min(k, len(rows))]
}

// ComputeRecall returns the fraction of the ground truth rows that appear in
// approximate.
func ComputeRecall(groundTruth []int, approximate []int) float64 {
	if len(groundTruth) == 0 {
		if len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	truth := make(map[int]struct{}, len(groundTruth))
	for _, r := range groundTruth {
		truth[r] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truth[r]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(groundTruth))
}

// MaxAbsDiff returns the largest element-wise absolute difference between
// two tensors of equal shape.
func MaxAbsDiff(a, b *tensor.Tensor) float64 {
	var m float64
	for i, v := range a.RawData() {
		m = math.Max(m, math.Abs(v-b.RawData()[i]))
	}
	return m
}

func mustTensor(rows, cols int, data []float64) *tensor.Tensor {
	t, err := tensor.New(rows, cols, data)
	if err != nil {
		panic(err)
	}
	return t
}
