package persistence

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/hupe1980/vecquant/codec"
	"github.com/hupe1980/vecquant/internal/compress"
	"github.com/hupe1980/vecquant/internal/hash"
	"github.com/hupe1980/vecquant/quantization"
)

// Options configures Encode.
type Options struct {
	// Codec encodes the payload. Defaults to codec.Default.
	Codec codec.Codec
	// Compression is applied to the payload. It falls back to none when the
	// payload does not compress.
	Compression compress.Type
	// ID identifies the artifact. A random UUID is generated when zero.
	ID uuid.UUID
}

// Option configures Encode, Save.
type Option func(*Options)

// WithCodec sets the payload codec.
func WithCodec(c codec.Codec) Option {
	return func(o *Options) { o.Codec = c }
}

// WithCompression sets the payload compression.
func WithCompression(t compress.Type) Option {
	return func(o *Options) { o.Compression = t }
}

// WithID sets the artifact ID instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(o *Options) { o.ID = id }
}

// Encode writes a in the artifact file format and returns the written header.
func Encode(w io.Writer, a quantization.Artifact, optFns ...Option) (*Header, error) {
	opts := Options{Codec: codec.Default, Compression: compress.None}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}

	payload, err := toPayload(a)
	if err != nil {
		return nil, err
	}

	raw, err := opts.Codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("persistence: marshal %s payload: %w", a.Type(), err)
	}

	stored, ct, err := compress.Compress(raw, opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("persistence: compress payload: %w", err)
	}

	h := &Header{
		Magic:       Magic,
		Version:     Version,
		Type:        uint8(a.Type()),
		Compression: uint8(ct),
		ID:          opts.ID,
		RawSize:     uint64(len(raw)),
		StoredSize:  uint64(len(stored)),
		Checksum:    hash.CRC32C(stored),
	}
	if err := h.setCodec(opts.Codec.Name()); err != nil {
		return nil, err
	}

	if err := WriteHeader(w, h); err != nil {
		return nil, err
	}
	if _, err := w.Write(stored); err != nil {
		return nil, err
	}
	return h, nil
}

// Marshal encodes a into a byte slice.
func Marshal(a quantization.Artifact, optFns ...Option) ([]byte, *Header, error) {
	var buf bytes.Buffer
	h, err := Encode(&buf, a, optFns...)
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), h, nil
}

// Decode reads an artifact written by Encode. The payload checksum is
// verified before it is decompressed or parsed.
func Decode(r io.Reader) (quantization.Artifact, *Header, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, nil, err
	}

	c, ok := codec.ByName(h.CodecName())
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCodec, h.CodecName())
	}

	stored := make([]byte, h.StoredSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, nil, fmt.Errorf("%w: short payload: %w", ErrCorrupt, err)
	}

	if sum := hash.CRC32C(stored); sum != h.Checksum {
		return nil, nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksumMismatch, sum, h.Checksum)
	}

	raw, err := compress.Decompress(stored, h.CompressionType(), int(h.RawSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	a, err := fromPayload(h.ArtifactType(), func(v any) error { return c.Unmarshal(raw, v) })
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s payload: %w", ErrCorrupt, h.ArtifactType(), err)
	}
	return a, h, nil
}

// Unmarshal decodes an artifact from a byte slice.
func Unmarshal(data []byte) (quantization.Artifact, *Header, error) {
	return Decode(bytes.NewReader(data))
}
