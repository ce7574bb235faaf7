package persistence

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hupe1980/vecquant/blobstore"
	"github.com/hupe1980/vecquant/quantization"
)

// Save encodes a and writes it to store under name atomically.
func Save(ctx context.Context, store blobstore.BlobStore, name string, a quantization.Artifact, optFns ...Option) (*Header, error) {
	data, h, err := Marshal(a, optFns...)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("persistence: put %s: %w", name, err)
	}
	return h, nil
}

// Load reads and decodes the artifact stored under name.
func Load(ctx context.Context, store blobstore.BlobStore, name string) (quantization.Artifact, *Header, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("persistence: open %s: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, nil, fmt.Errorf("persistence: read %s: %w", name, err)
	}

	a, h, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("persistence: load %s: %w", name, err)
	}
	return a, h, nil
}

// Stat reads only the header of the artifact stored under name.
func Stat(ctx context.Context, store blobstore.BlobStore, name string) (*Header, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	if blob.Size() < HeaderSize {
		return nil, fmt.Errorf("persistence: stat %s: %w: %d bytes", name, ErrCorrupt, blob.Size())
	}

	buf := make([]byte, HeaderSize)
	if _, err := blob.ReadAt(ctx, buf, 0); err != nil {
		return nil, fmt.Errorf("persistence: stat %s: %w", name, err)
	}

	h, err := ReadHeader(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("persistence: stat %s: %w", name, err)
	}
	if uint64(blob.Size()) != HeaderSize+h.StoredSize {
		return nil, fmt.Errorf("persistence: stat %s: %w: size %d, header says %d", name, ErrCorrupt, blob.Size(), HeaderSize+h.StoredSize)
	}
	return h, nil
}
