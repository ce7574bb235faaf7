package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"codes":[5,-25,0,51],"scale":0.0196850393700787}`), 200)

	for _, typ := range []Type{None, LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			stored, used, err := Compress(data, typ)
			require.NoError(t, err)
			assert.Equal(t, typ, used)
			if typ != None {
				assert.Less(t, len(stored), len(data))
			}

			out, err := Decompress(stored, used, len(data))
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestCompress_Incompressible(t *testing.T) {
	data := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(data)

	for _, typ := range []Type{LZ4, ZSTD} {
		stored, used, err := Compress(data, typ)
		require.NoError(t, err)
		assert.Equal(t, None, used)
		assert.Equal(t, data, stored)
	}
}

func TestDecompress_Errors(t *testing.T) {
	_, err := Decompress([]byte{1, 2}, None, 3)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = Decompress(nil, Type(9), 0)
	assert.ErrorIs(t, err, ErrUnknownType)

	_, _, err = Compress([]byte{1}, Type(9))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParse(t *testing.T) {
	for _, typ := range []Type{None, LZ4, ZSTD} {
		got, err := Parse(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	got, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, None, got)

	_, err = Parse("gzip")
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, "unknown(9)", Type(9).String())
}
