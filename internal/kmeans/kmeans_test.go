package kmeans

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecquant/internal/vecmath"
)

func defaultConfig(k int) Config {
	return Config{K: k, Seed: 0, MaxIterations: 100, Tolerance: 1e-9}
}

func TestTrain(t *testing.T) {
	ctx := context.Background()
	// 2 clusters: (0,0) and (10,10)
	vecs := []float64{
		0, 0, 0, 1, 1, 0, // near 0,0
		10, 10, 10, 11, 11, 10, // near 10,10
	}
	dim := 2

	res, err := Train(ctx, vecs, dim, defaultConfig(2))
	require.NoError(t, err)
	assert.Len(t, res.Centroids, 2*dim)
	assert.True(t, res.Converged)

	p1 := Assign([]float64{0.5, 0.5}, res.Centroids, dim)
	p2 := Assign([]float64{10.5, 10.5}, res.Centroids, dim)
	assert.NotEqual(t, p1, p2)

	// Each centroid is the mean of its cluster.
	c1 := res.Centroids[p1*dim : (p1+1)*dim]
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3}, c1, 1e-12)
	c2 := res.Centroids[p2*dim : (p2+1)*dim]
	assert.InDeltaSlice(t, []float64{31.0 / 3, 31.0 / 3}, c2, 1e-12)

	// 4 points at squared distance 2/9+... from their means.
	assert.InDelta(t, 4.0*(1.0/9+4.0/9)+2.0*(2.0/9), res.Inertia, 1e-9)
}

func TestTrain_Errors(t *testing.T) {
	ctx := context.Background()
	vecs := []float64{0, 0, 1, 1}

	tests := []struct {
		name    string
		samples []float64
		dim     int
		cfg     Config
		want    error
	}{
		{"k zero", vecs, 2, defaultConfig(0), ErrInvalidK},
		{"k too large", vecs, 2, defaultConfig(3), ErrTooFewSamples},
		{"no samples", nil, 2, defaultConfig(1), ErrNoSamples},
		{"ragged", []float64{0, 0, 1}, 2, defaultConfig(1), ErrInvalidDimension},
		{"zero dim", vecs, 0, defaultConfig(1), ErrInvalidDimension},
		{"iterations", vecs, 2, Config{K: 1, MaxIterations: 0}, ErrInvalidIterations},
		{"tolerance", vecs, 2, Config{K: 1, MaxIterations: 1, Tolerance: -1}, ErrInvalidTolerance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Train(ctx, tt.samples, tt.dim, tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTrain_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	vecs := make([]float64, 1000*2)
	for i := range vecs {
		vecs[i] = float64(i)
	}

	_, err := Train(ctx, vecs, 2, defaultConfig(10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrain_Deterministic(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	const n, dim = 5000, 4
	vecs := make([]float64, n*dim)
	for i := range vecs {
		vecs[i] = rng.NormFloat64()
	}

	cfg := Config{K: 16, Seed: 3, MaxIterations: 25, Tolerance: 1e-6, Workers: 1}
	serial, err := Train(ctx, vecs, dim, cfg)
	require.NoError(t, err)

	cfg.Workers = 8
	parallel, err := Train(ctx, vecs, dim, cfg)
	require.NoError(t, err)

	again, err := Train(ctx, vecs, dim, cfg)
	require.NoError(t, err)

	assert.Equal(t, serial.Centroids, parallel.Centroids, "worker count must not change the result")
	assert.Equal(t, parallel.Centroids, again.Centroids)
	assert.Equal(t, serial.Iterations, parallel.Iterations)
}

func TestTrain_NearestCentroidOptimality(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const n, dim = 300, 3
	vecs := make([]float64, n*dim)
	for i := range vecs {
		vecs[i] = rng.Float64()*10 - 5
	}

	res, err := Train(context.Background(), vecs, dim, Config{K: 8, Seed: 1, MaxIterations: 50})
	require.NoError(t, err)

	for i := range n {
		v := vecs[i*dim : (i+1)*dim]
		idx := Assign(v, res.Centroids, dim)
		best := vecmath.SquaredL2(v, res.Centroids[idx*dim:(idx+1)*dim])
		for j := range 8 {
			d := vecmath.SquaredL2(v, res.Centroids[j*dim:(j+1)*dim])
			assert.GreaterOrEqual(t, d, best)
			if d == best {
				assert.GreaterOrEqual(t, j, idx, "ties must resolve to the lowest index")
			}
		}
	}
}

func TestInitCentroids_FarthestFirst(t *testing.T) {
	samples := []float64{
		0.1, -0.5,
		2.5, -1.2,
		0.9, 1.5,
	}

	got := initCentroids(samples, 3, 2, 3, 1)
	assert.Equal(t, []float64{2.5, -1.2, 0.9, 1.5, 0.1, -0.5}, got)

	// Seed wraps around the sample count.
	assert.Equal(t, got, initCentroids(samples, 3, 2, 3, 4))

	got = initCentroids(samples, 3, 2, 2, 0)
	assert.Equal(t, []float64{0.1, -0.5, 2.5, -1.2}, got)
}

func TestTrain_EverySampleACentroid(t *testing.T) {
	samples := []float64{
		0, 1,
		0.7, -0.3,
		-2.0, 0.2,
	}

	res, err := Train(context.Background(), samples, 2, Config{K: 3, Seed: 1, MaxIterations: 10})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.7, -0.3, -2.0, 0.2, 0, 1}, res.Centroids)
	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Converged)
	assert.Zero(t, res.Inertia)
}

func TestUpdate_ReseedsEmptyCluster(t *testing.T) {
	samples := []float64{0, 1, 2, 10}
	centroids := []float64{1, 100, 50}
	assignments := []int{0, 0, 0, 0}
	dists := []float64{1, 0, 1, 81}

	next := update(samples, centroids, 1, 3, assignments, dists)

	assert.InDelta(t, 3.25, next[0], 1e-12)
	assert.Equal(t, 10.0, next[1], "first empty cluster takes the farthest outlier")
	assert.Equal(t, 0.0, next[2], "second empty cluster takes the next outlier, lowest index on ties")
}

func TestUpdate_KeepsCentroidWithoutDonor(t *testing.T) {
	samples := []float64{0, 5}
	centroids := []float64{0, 5, 9}
	assignments := []int{0, 1}
	dists := []float64{0, 0}

	next := update(samples, centroids, 1, 3, assignments, dists)
	assert.Equal(t, []float64{0, 5, 9}, next)
}

func TestAssign_Empty(t *testing.T) {
	assert.Equal(t, -1, Assign([]float64{1}, nil, 1))
}
