package quantization

import (
	"context"
	"fmt"
	"math"

	"github.com/hupe1980/vecquant/internal/kmeans"
)

// Default clustering parameters.
const (
	DefaultMaxIterations = 20
	DefaultTolerance     = 1e-6
)

// ClusterConfig configures codebook training with Lloyd's algorithm.
type ClusterConfig struct {
	// K is the number of centroids (1 <= K <= number of samples).
	K int
	// Seed makes initialization reproducible; the first centroid is
	// samples[Seed mod n] and the rest follow farthest-first.
	Seed uint64
	// MaxIterations bounds the number of Lloyd iterations.
	MaxIterations int
	// Tolerance stops training once the summed centroid displacement of an
	// iteration falls below it.
	Tolerance float64
	// Workers bounds the parallelism of the assignment step (<= 0: GOMAXPROCS).
	Workers int
}

// DefaultClusterConfig returns a config for k centroids with default
// iteration bound and tolerance.
func DefaultClusterConfig(k int) ClusterConfig {
	return ClusterConfig{
		K:             k,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

func (c ClusterConfig) kmeans() kmeans.Config {
	return kmeans.Config{
		K:             c.K,
		Seed:          c.Seed,
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
		Workers:       c.Workers,
	}
}

func (c ClusterConfig) validate() error {
	if c.K < 1 {
		return fmt.Errorf("%w: K must be positive, got %d", ErrConfig, c.K)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrConfig, c.MaxIterations)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must be non-negative, got %v", ErrConfig, c.Tolerance)
	}
	return nil
}

// TrainStats describes a finished codebook training run.
type TrainStats struct {
	Iterations int
	Converged  bool
	Inertia    float64
}

// TrainCodebook learns a codebook from equally sized samples. Identical
// samples and config always produce a bit-identical codebook. The result is
// a local optimum of the within-cluster sum of squared distances.
func TrainCodebook(ctx context.Context, samples [][]float64, cfg ClusterConfig) (*Codebook, TrainStats, error) {
	if len(samples) == 0 {
		return nil, TrainStats{}, fmt.Errorf("%w: no samples", ErrConfig)
	}

	dim := len(samples[0])
	flat := make([]float64, 0, len(samples)*dim)
	for i, s := range samples {
		if len(s) != dim {
			return nil, TrainStats{}, fmt.Errorf("%w: sample %d has dimension %d, expected %d", ErrConfig, i, len(s), dim)
		}
		flat = append(flat, s...)
	}

	return trainFlat(ctx, flat, dim, cfg)
}

func trainFlat(ctx context.Context, flat []float64, dim int, cfg ClusterConfig) (*Codebook, TrainStats, error) {
	for i, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, TrainStats{}, fmt.Errorf("%w: sample value %d is %v", ErrNumericalDegeneracy, i, v)
		}
	}

	res, err := kmeans.Train(ctx, flat, dim, cfg.kmeans())
	if err != nil {
		return nil, TrainStats{}, translateError(err)
	}

	stats := TrainStats{Iterations: res.Iterations, Converged: res.Converged, Inertia: res.Inertia}
	return newCodebookFlat(cfg.K, dim, res.Centroids), stats, nil
}

// Assign returns the index of the centroid nearest to sample, the lowest
// index among equally close centroids.
func Assign(sample []float64, cb *Codebook) (int, error) {
	return cb.Nearest(sample)
}
