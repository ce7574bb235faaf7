package quantization

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecquant/testutil"
)

var workedQuery = []float64{0.2, -0.1, 0.5, 1.0}

func TestLookupEngine_Worked(t *testing.T) {
	ctx := context.Background()
	pq := trainedWorkedPQ(t)

	engine, err := NewLookupEngine(pq, 0)
	require.NoError(t, err)

	tables, err := engine.BuildTables(workedQuery)
	require.NoError(t, err)
	assert.Equal(t, 2, tables.M())
	assert.Equal(t, 3, tables.K())
	// dot([0.2,-0.1], [2.5,-1.2]) = 0.62
	assert.InDelta(t, 0.62, tables.At(0, 0), 1e-12)
	assert.Len(t, tables.Table(1), 3)

	codes, err := pq.EncodeCodes(workedMatrix())
	require.NoError(t, err)

	scores, err := engine.ApproxDotAll(ctx, codes, tables)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.07, 0.67, -0.77}, scores, 1e-9)

	single, err := engine.ApproxDot(codes.Row(1), tables)
	require.NoError(t, err)
	assert.InDelta(t, 0.67, single, 1e-9)
}

func TestLookupEngine_MatchesDecodedDot(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(21)
	x := rng.GaussianTensor(3000, 16)

	pq, err := NewProductQuantizer(16, 4, 32, WithPQSeed(5))
	require.NoError(t, err)
	require.NoError(t, pq.Train(ctx, x))

	codes, err := pq.EncodeCodes(x)
	require.NoError(t, err)
	decoded, err := pq.DecodeCodes(codes)
	require.NoError(t, err)

	engine, err := NewLookupEngine(pq, 4)
	require.NoError(t, err)

	query := rng.Vector(16)
	tables, err := engine.BuildTables(query)
	require.NoError(t, err)

	scores, err := engine.ApproxDotAll(ctx, codes, tables)
	require.NoError(t, err)
	assert.InDeltaSlice(t, testutil.ExactDots(query, decoded), scores, 1e-9)
}

func TestLookupEngine_Selected(t *testing.T) {
	ctx := context.Background()
	pq := trainedWorkedPQ(t)
	engine, err := NewLookupEngine(pq, 0)
	require.NoError(t, err)

	tables, err := engine.BuildTables(workedQuery)
	require.NoError(t, err)
	codes, err := pq.EncodeCodes(workedMatrix())
	require.NoError(t, err)

	scores, err := engine.ApproxDotSelected(ctx, codes, tables, roaring.BitmapOf(2, 0))
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 0, scores[0].Row)
	assert.InDelta(t, 1.07, scores[0].Score, 1e-9)
	assert.Equal(t, 2, scores[1].Row)
	assert.InDelta(t, -0.77, scores[1].Score, 1e-9)

	all, err := engine.ApproxDotSelected(ctx, codes, tables, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := engine.ApproxDotSelected(ctx, codes, tables, roaring.New())
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = engine.ApproxDotSelected(ctx, codes, tables, roaring.BitmapOf(3))
	assert.ErrorIs(t, err, ErrUsage)
}

func TestLookupEngine_TopK(t *testing.T) {
	ctx := context.Background()
	pq := trainedWorkedPQ(t)
	engine, err := NewLookupEngine(pq, 0)
	require.NoError(t, err)

	tables, err := engine.BuildTables(workedQuery)
	require.NoError(t, err)

	// Row 3 duplicates row 0.
	codes, err := NewCodeMatrix(4, 2, []int32{2, 2, 0, 0, 1, 1, 2, 2})
	require.NoError(t, err)

	top, err := engine.TopK(ctx, codes, tables, 3, nil)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []int{0, 3, 1}, []int{top[0].Row, top[1].Row, top[2].Row})

	top, err = engine.TopK(ctx, codes, tables, 10, roaring.BitmapOf(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, []int{top[0].Row, top[1].Row})

	_, err = engine.TopK(ctx, codes, tables, 0, nil)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestLookupEngine_Errors(t *testing.T) {
	ctx := context.Background()

	untrained, err := NewProductQuantizer(4, 2, 3)
	require.NoError(t, err)
	engine, err := NewLookupEngine(untrained, 0)
	require.NoError(t, err)
	_, err = engine.BuildTables(workedQuery)
	assert.ErrorIs(t, err, ErrNotTrained)

	_, err = NewLookupEngine(nil, 0)
	assert.ErrorIs(t, err, ErrConfig)

	pq := trainedWorkedPQ(t)
	engine, err = NewLookupEngine(pq, 0)
	require.NoError(t, err)

	_, err = engine.BuildTables([]float64{1, 2, 3})
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)

	tables, err := engine.BuildTables(workedQuery)
	require.NoError(t, err)

	_, err = engine.ApproxDot([]int32{0}, tables)
	assert.ErrorIs(t, err, ErrUsage)
	_, err = engine.ApproxDot([]int32{0, 3}, tables)
	assert.ErrorIs(t, err, ErrUsage)
	_, err = engine.ApproxDot([]int32{0, 0}, nil)
	assert.ErrorIs(t, err, ErrUsage)

	bad, err := NewCodeMatrix(1, 2, []int32{0, -1})
	require.NoError(t, err)
	_, err = engine.ApproxDotAll(ctx, bad, tables)
	assert.ErrorIs(t, err, ErrUsage)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	codes, err := pq.EncodeCodes(workedMatrix())
	require.NoError(t, err)
	_, err = engine.ApproxDotAll(canceled, codes, tables)
	assert.ErrorIs(t, err, context.Canceled)
}
