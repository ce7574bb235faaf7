package kmeans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecquant/internal/vecmath"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("kmeans: k must be positive")
	// ErrTooFewSamples is returned when there are fewer samples than clusters.
	ErrTooFewSamples = errors.New("kmeans: fewer samples than clusters")
	// ErrNoSamples is returned when the sample set is empty.
	ErrNoSamples = errors.New("kmeans: no samples")
	// ErrInvalidDimension is returned for a non-positive or inconsistent dimension.
	ErrInvalidDimension = errors.New("kmeans: invalid dimension")
	// ErrInvalidIterations is returned when MaxIterations is not positive.
	ErrInvalidIterations = errors.New("kmeans: max iterations must be positive")
	// ErrInvalidTolerance is returned for a negative or NaN tolerance.
	ErrInvalidTolerance = errors.New("kmeans: tolerance must be non-negative")
)

// minParallelSamples is the sample count below which the assignment step
// runs on the calling goroutine.
const minParallelSamples = 2048

// Config controls a training run.
type Config struct {
	// K is the number of centroids.
	K int
	// Seed selects the first centroid (samples[Seed mod n]).
	Seed uint64
	// MaxIterations bounds the number of Lloyd iterations.
	MaxIterations int
	// Tolerance stops training once the summed centroid displacement of an
	// iteration falls below it.
	Tolerance float64
	// Workers bounds the parallelism of the assignment step.
	// Zero or negative means GOMAXPROCS.
	Workers int
}

// Result is the outcome of Train.
type Result struct {
	// Centroids holds K*Dim values, centroid j at [j*Dim:(j+1)*Dim].
	Centroids  []float64
	Dim        int
	Iterations int
	Converged  bool
	// Inertia is the within-cluster sum of squared distances under the
	// returned centroids.
	Inertia float64
}

func (c Config) validate(n int) error {
	if c.K < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, c.K)
	}
	if c.K > n {
		return fmt.Errorf("%w: %d samples, k=%d", ErrTooFewSamples, n, c.K)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterations, c.MaxIterations)
	}
	if c.Tolerance < 0 || math.IsNaN(c.Tolerance) {
		return fmt.Errorf("%w: got %v", ErrInvalidTolerance, c.Tolerance)
	}
	return nil
}

// Train clusters the flat sample slice (n*dim values) with Lloyd's
// algorithm. Each iteration produces a new centroid snapshot; the previous
// one is never mutated. ctx is checked between iterations.
func Train(ctx context.Context, samples []float64, dim int, cfg Config) (*Result, error) {
	if dim < 1 || len(samples)%dim != 0 {
		return nil, fmt.Errorf("%w: %d values with dim %d", ErrInvalidDimension, len(samples), dim)
	}
	n := len(samples) / dim
	if n == 0 {
		return nil, ErrNoSamples
	}
	if err := cfg.validate(n); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	centroids := initCentroids(samples, n, dim, cfg.K, cfg.Seed)
	assignments := make([]int, n)
	dists := make([]float64, n)

	res := &Result{Dim: dim}
	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		assign(samples, centroids, dim, assignments, dists, workers)
		next := update(samples, centroids, dim, cfg.K, assignments, dists)
		shift := displacement(centroids, next, dim)
		centroids = next
		res.Iterations = iter

		if shift == 0 || shift < cfg.Tolerance {
			res.Converged = true
			break
		}
	}

	assign(samples, centroids, dim, assignments, dists, workers)
	for _, d := range dists {
		res.Inertia += d
	}
	res.Centroids = centroids

	return res, nil
}

// Assign returns the index of the centroid nearest to vec (lowest index on
// ties) or -1 when centroids is empty.
func Assign(vec, centroids []float64, dim int) int {
	idx, _ := vecmath.Nearest(vec, centroids, dim)
	return idx
}

// initCentroids runs a farthest-first traversal starting at samples[seed mod n].
// Each further centroid is the unchosen sample whose squared distance to its
// nearest chosen centroid is largest; ties pick the lowest sample index.
func initCentroids(samples []float64, n, dim, k int, seed uint64) []float64 {
	centroids := make([]float64, k*dim)
	chosen := make([]bool, n)

	first := int(seed % uint64(n))
	copy(centroids[:dim], samples[first*dim:(first+1)*dim])
	chosen[first] = true

	minDist := make([]float64, n)
	for i := range n {
		minDist[i] = vecmath.SquaredL2(samples[i*dim:(i+1)*dim], centroids[:dim])
	}

	for c := 1; c < k; c++ {
		best := -1
		for i := range n {
			if chosen[i] {
				continue
			}
			if best < 0 || minDist[i] > minDist[best] {
				best = i
			}
		}

		chosen[best] = true
		center := centroids[c*dim : (c+1)*dim]
		copy(center, samples[best*dim:(best+1)*dim])

		for i := range n {
			if d := vecmath.SquaredL2(samples[i*dim:(i+1)*dim], center); d < minDist[i] {
				minDist[i] = d
			}
		}
	}

	return centroids
}

// assign writes the nearest centroid and its squared distance for every
// sample. Samples are partitioned into contiguous ranges across workers.
func assign(samples, centroids []float64, dim int, assignments []int, dists []float64, workers int) {
	n := len(assignments)

	run := func(start, end int) {
		for i := start; i < end; i++ {
			assignments[i], dists[i] = vecmath.Nearest(samples[i*dim:(i+1)*dim], centroids, dim)
		}
	}

	if workers <= 1 || n < minParallelSamples {
		run(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			run(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// update recomputes every centroid as the mean of its members into a new
// slice. A cluster without members is re-seeded from the farthest outlier:
// the sample with the largest distance to its centroid whose own cluster
// keeps at least one other member. If no such sample exists the previous
// centroid is carried over.
func update(samples, centroids []float64, dim, k int, assignments []int, dists []float64) []float64 {
	next := make([]float64, k*dim)
	counts := make([]int, k)

	for i, c := range assignments {
		vecmath.AddTo(next[c*dim:(c+1)*dim], samples[i*dim:(i+1)*dim])
		counts[c]++
	}

	var empty []int
	for j := range k {
		if counts[j] == 0 {
			empty = append(empty, j)
			continue
		}
		vecmath.ScaleInPlace(next[j*dim:(j+1)*dim], 1/float64(counts[j]))
	}

	if len(empty) == 0 {
		return next
	}

	taken := make([]bool, len(assignments))
	for _, j := range empty {
		idx := farthestOutlier(assignments, dists, counts, taken)
		if idx < 0 {
			copy(next[j*dim:(j+1)*dim], centroids[j*dim:(j+1)*dim])
			continue
		}
		copy(next[j*dim:(j+1)*dim], samples[idx*dim:(idx+1)*dim])
		taken[idx] = true
		counts[assignments[idx]]--
		counts[j] = 1
	}

	return next
}

func farthestOutlier(assignments []int, dists []float64, counts []int, taken []bool) int {
	best := -1
	for i, d := range dists {
		if taken[i] || d <= 0 || counts[assignments[i]] < 2 {
			continue
		}
		if best < 0 || d > dists[best] {
			best = i
		}
	}
	return best
}

// displacement is the summed Euclidean distance every centroid moved.
func displacement(prev, next []float64, dim int) float64 {
	var total float64
	for j := 0; j*dim < len(prev); j++ {
		total += vecmath.L2(prev[j*dim:(j+1)*dim], next[j*dim:(j+1)*dim])
	}
	return total
}
