// Package compress wraps the block compressors used for artifact payloads.
package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None indicates no compression.
	None Type = 0
	// LZ4 indicates LZ4 block compression (fast).
	LZ4 Type = 1
	// ZSTD indicates ZSTD block compression (better ratio).
	ZSTD Type = 2
)

var (
	// ErrUnknownType is returned for an unsupported compression type.
	ErrUnknownType = errors.New("compress: unknown compression type")
	// ErrSizeMismatch is returned when a block does not decompress to the
	// recorded size.
	ErrSizeMismatch = errors.New("compress: decompressed size mismatch")
)

// String returns the name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Parse parses "none", "lz4" or "zstd". The empty string means None.
func Parse(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// minRatio is the stored/raw size ratio above which compression is skipped.
const minRatio = 0.9

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Compress compresses data with t. When compression does not shrink the
// data by at least 10% the input is returned unchanged together with None,
// so callers must record the returned type.
func Compress(data []byte, t Type) ([]byte, Type, error) {
	if t == None || len(data) == 0 {
		return data, None, nil
	}

	var (
		out []byte
		err error
	)

	switch t {
	case LZ4:
		out, err = compressLZ4(data)
	case ZSTD:
		out = compressZSTD(data)
	default:
		return nil, None, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	if err != nil {
		return nil, None, err
	}

	if len(out) == 0 || float64(len(out)) > float64(len(data))*minRatio {
		return data, None, nil
	}
	return out, t, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	// n == 0: incompressible
	return compressed[:n], nil
}

func compressZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)

	return enc.EncodeAll(data, nil)
}

// Decompress reverses Compress. size is the uncompressed length.
func Decompress(data []byte, t Type, size int) ([]byte, error) {
	switch t {
	case None:
		if len(data) != size {
			return nil, fmt.Errorf("%w: stored %d bytes, expected %d", ErrSizeMismatch, len(data), size)
		}
		return data, nil

	case LZ4:
		result := make([]byte, size)
		n, err := lz4.UncompressBlock(data, result)
		if err != nil {
			return nil, err
		}
		if n != size {
			return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, n, size)
		}
		return result, nil

	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, err
		}
		if len(decoded) != size {
			return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, len(decoded), size)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}
