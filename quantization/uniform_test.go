package quantization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecquant/tensor"
	"github.com/hupe1980/vecquant/testutil"
)

func workedMatrix() *tensor.Tensor {
	return tensor.MustFromRows([][]float64{
		{0.1, -0.5, 0, 1.0},
		{2.5, -1.2, 0.7, -0.3},
		{0.9, 1.5, -2.0, 0.2},
	})
}

func TestQMax(t *testing.T) {
	tests := []struct {
		bits int
		want int32
	}{
		{2, 1},
		{4, 7},
		{8, 127},
		{16, 32767},
		{32, math.MaxInt32},
	}

	for _, tt := range tests {
		got, err := QMax(tt.bits)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "bits=%d", tt.bits)
	}

	for _, bits := range []int{-1, 0, 1, 33} {
		_, err := QMax(bits)
		assert.ErrorIs(t, err, ErrConfig, "bits=%d", bits)

		var invalid *ErrInvalidBits
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, bits, invalid.Bits)
	}
}

func TestQuantize_Worked(t *testing.T) {
	q, err := Quantize(workedMatrix(), 8)
	require.NoError(t, err)

	assert.InDelta(t, 2.5/127, q.Scale(), 1e-12)
	assert.InDelta(t, 0.019685, q.Scale(), 1e-6)
	assert.Equal(t, []int32{5, -25, 0, 51}, q.Row(0))
	assert.Equal(t, int32(127), q.At(1, 0))
	assert.Equal(t, TypeUniform, q.Type())

	rows, cols := q.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)
}

func TestQuantize_Properties(t *testing.T) {
	rng := testutil.NewRNG(7)
	x := rng.GaussianTensor(64, 16)

	for _, bits := range []int{2, 3, 4, 8, 16} {
		q, err := Quantize(x, bits)
		require.NoError(t, err)

		qmax := q.QMax()
		for _, c := range q.Codes() {
			assert.LessOrEqual(t, c, qmax)
			assert.GreaterOrEqual(t, c, -qmax)
		}

		// Largest magnitude maps to +-qmax.
		var top int32
		for _, c := range q.Codes() {
			top = max(top, c, -c)
		}
		assert.Equal(t, qmax, top)

		approx, err := Dequantize(q)
		require.NoError(t, err)
		assert.LessOrEqual(t, testutil.MaxAbsDiff(x, approx), q.Scale()/2+1e-12, "bits=%d", bits)
	}
}

func TestQuantize_HalfAwayFromZero(t *testing.T) {
	// scale = 2/1 with 2 bits; 1.0/2 = 0.5 rounds to 1, -1.0/2 to -1.
	x := tensor.MustFromRows([][]float64{{2, 1, -1, -2}})

	q, err := Quantize(x, 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, q.Scale())
	assert.Equal(t, []int32{1, 1, -1, -1}, q.Codes())
}

func TestQuantize_ZeroRange(t *testing.T) {
	x := tensor.MustFromRows([][]float64{{0, 0}, {0, 0}})

	q, err := Quantize(x, 8)
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.Scale())
	assert.Equal(t, []int32{0, 0, 0, 0}, q.Codes())

	approx, err := Dequantize(q)
	require.NoError(t, err)
	assert.True(t, approx.Equal(x))

	_, err = Quantize(x, 8, WithStrictDegeneracy())
	assert.ErrorIs(t, err, ErrNumericalDegeneracy)
}

func TestQuantize_SubnormalRange(t *testing.T) {
	x := tensor.MustFromRows([][]float64{{5e-324, 0}, {-5e-324, 0}})

	q, err := Quantize(x, 8)
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.Scale())
	assert.Equal(t, []int32{0, 0, 0, 0}, q.Codes())

	_, err = NewQuantizedTensor(2, 2, 8, q.Scale(), q.Codes())
	require.NoError(t, err)

	approx, err := Dequantize(q)
	require.NoError(t, err)
	assert.True(t, approx.EqualApprox(x, q.Scale()/2))

	_, err = Quantize(x, 8, WithStrictDegeneracy())
	assert.ErrorIs(t, err, ErrNumericalDegeneracy)

	// A tiny but representable range still gets a positive scale.
	y := tensor.MustFromRows([][]float64{{1e-300, -2.5e-301}})
	q, err = Quantize(y, 8)
	require.NoError(t, err)
	assert.Greater(t, q.Scale(), 0.0)
	assert.Equal(t, []int32{127, -32}, q.Codes())
}

func TestQuantize_NaNQuotientIsZero(t *testing.T) {
	x := tensor.MustFromRows([][]float64{{0, 1}})

	q, report := quantize(x, 0, 8, 127)
	assert.Equal(t, []int32{0, 127}, q.Codes())
	assert.Equal(t, 1, report.Count)
}

func TestQuantize_NonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		x := tensor.MustFromRows([][]float64{{1, v}})

		_, err := Quantize(x, 8)
		assert.ErrorIs(t, err, ErrNumericalDegeneracy)

		_, _, err = QuantizeWithScale(x, 0.1, 8)
		assert.ErrorIs(t, err, ErrNumericalDegeneracy)
	}
}

func TestQuantize_InvalidBits(t *testing.T) {
	_, err := Quantize(workedMatrix(), 1)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewUniformQuantizer(33)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestQuantizeWithScale_Clamp(t *testing.T) {
	// qmax = 7, scale 0.1: representable range is [-0.7, 0.7].
	x := tensor.MustFromRows([][]float64{
		{0.1, 0.9, -0.2},
		{-5, 0.7, 0.74},
	})

	q, report, err := QuantizeWithScale(x, 0.1, 4)
	require.NoError(t, err)

	assert.Equal(t, []int32{1, 7, -2, -7, 7, 7}, q.Codes())
	assert.True(t, report.Any())
	assert.Equal(t, 2, report.Count)
	assert.Equal(t, []int{1, 3}, report.Positions())

	_, report, err = QuantizeWithScale(x, 10, 4)
	require.NoError(t, err)
	assert.False(t, report.Any())
	assert.Nil(t, report.Positions())

	_, _, err = QuantizeWithScale(x, 0, 4)
	assert.ErrorIs(t, err, ErrConfig)
	_, _, err = QuantizeWithScale(x, math.Inf(1), 4)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNewQuantizedTensor(t *testing.T) {
	q, err := NewQuantizedTensor(1, 3, 4, 0.5, []int32{-7, 0, 7})
	require.NoError(t, err)

	approx, err := Dequantize(q)
	require.NoError(t, err)
	assert.Equal(t, []float64{-3.5, 0, 3.5}, approx.Data())

	_, err = NewQuantizedTensor(1, 3, 4, 0.5, []int32{-8, 0, 7})
	var oor *ErrCodeOutOfRange
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 0, oor.Index)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = NewQuantizedTensor(1, 2, 4, 0.5, []int32{0, 0, 0})
	assert.ErrorIs(t, err, ErrUsage)

	_, err = NewQuantizedTensor(1, 1, 4, -1, []int32{0})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestUniformQuantizer(t *testing.T) {
	u, err := NewUniformQuantizer(8)
	require.NoError(t, err)
	assert.Equal(t, TypeUniform, u.Type())
	assert.Equal(t, 8, u.NumBits())

	a, err := u.Encode(workedMatrix())
	require.NoError(t, err)
	assert.Equal(t, TypeUniform, a.Type())

	approx, err := u.Decode(a)
	require.NoError(t, err)
	assert.True(t, approx.EqualApprox(workedMatrix(), 2.5/127/2+1e-12))

	_, err = u.Decode(&VQArtifact{})
	assert.ErrorIs(t, err, ErrUsage)
	_, err = u.Decode(nil)
	assert.ErrorIs(t, err, ErrUsage)

	strict, err := NewUniformQuantizer(8, WithStrictDegeneracy())
	require.NoError(t, err)
	_, err = strict.Encode(tensor.MustFromRows([][]float64{{0}}))
	assert.ErrorIs(t, err, ErrNumericalDegeneracy)
}
