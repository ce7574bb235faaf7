package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/hupe1980/vecquant/codec"
	"github.com/hupe1980/vecquant/internal/compress"
	"github.com/hupe1980/vecquant/quantization"
)

const (
	// Version is the current file format version.
	Version uint16 = 1

	// HeaderSize is the encoded size of Header in bytes.
	HeaderSize = 64

	// MaxPayloadSize bounds the payload a reader will allocate for.
	MaxPayloadSize = 1 << 34
)

// Magic identifies artifact files (ASCII "VQNT").
var Magic = [4]byte{'V', 'Q', 'N', 'T'}

var (
	ErrInvalidMagic     = errors.New("persistence: invalid magic number")
	ErrInvalidVersion   = errors.New("persistence: unsupported version")
	ErrChecksumMismatch = errors.New("persistence: checksum mismatch")
	ErrUnknownCodec     = errors.New("persistence: unknown codec")
	ErrUnknownArtifact  = errors.New("persistence: unknown artifact type")
	ErrCorrupt          = errors.New("persistence: corrupt artifact")
)

// Header is the fixed-size header at the start of every artifact file.
type Header struct {
	Magic       [4]byte
	Version     uint16
	Type        uint8
	Compression uint8
	Codec       [codec.MaxNameLen]byte
	ID          uuid.UUID
	RawSize     uint64
	StoredSize  uint64
	Checksum    uint32
	Reserved    [4]byte
}

// ArtifactType returns the quantization type recorded in the header.
func (h *Header) ArtifactType() quantization.Type { return quantization.Type(h.Type) }

// CompressionType returns the payload compression.
func (h *Header) CompressionType() compress.Type { return compress.Type(h.Compression) }

// CodecName returns the payload codec name.
func (h *Header) CodecName() string {
	return string(bytes.TrimRight(h.Codec[:], "\x00"))
}

// String returns a one-line summary of the header.
func (h *Header) String() string {
	return fmt.Sprintf("%s v%d id=%s codec=%s compression=%s size=%d/%d crc32c=%08x",
		h.ArtifactType(), h.Version, h.ID, h.CodecName(), h.CompressionType(),
		h.StoredSize, h.RawSize, h.Checksum)
}

func (h *Header) setCodec(name string) error {
	if name == "" || len(name) > codec.MaxNameLen {
		return fmt.Errorf("%w: codec name %q must be 1..%d bytes", ErrUnknownCodec, name, codec.MaxNameLen)
	}
	h.Codec = [codec.MaxNameLen]byte{}
	copy(h.Codec[:], name)
	return nil
}

// validate checks the fields that do not depend on the payload.
func (h *Header) validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: got %q", ErrInvalidMagic, h.Magic[:])
	}
	if h.Version != Version {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidVersion, h.Version, Version)
	}
	switch h.ArtifactType() {
	case quantization.TypeUniform, quantization.TypeVQ, quantization.TypePQ:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownArtifact, h.Type)
	}
	if h.CompressionType() > compress.ZSTD {
		return fmt.Errorf("%w: %w: %d", ErrCorrupt, compress.ErrUnknownType, h.Compression)
	}
	if h.StoredSize > MaxPayloadSize || h.RawSize > MaxPayloadSize {
		return fmt.Errorf("%w: payload size %d/%d exceeds limit", ErrCorrupt, h.StoredSize, h.RawSize)
	}
	return nil
}

// WriteHeader writes h in its binary layout.
func WriteHeader(w io.Writer, h *Header) error {
	return binary.Write(w, binary.LittleEndian, h)
}

// ReadHeader reads and validates a header.
func ReadHeader(r io.Reader) (*Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short header", ErrCorrupt)
		}
		return nil, err
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return &h, nil
}
