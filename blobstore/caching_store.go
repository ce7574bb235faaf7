package blobstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheEntries is the number of blobs a CachingStore keeps when no
// size is given.
const DefaultCacheEntries = 64

// CachingStore wraps a BlobStore and keeps the content of recently opened
// blobs in memory. Blobs are immutable once written, so a cached copy stays
// valid until the blob is replaced or deleted through this store.
type CachingStore struct {
	inner BlobStore
	cache *lru.Cache[string, []byte]
}

// NewCachingStore creates a new CachingStore holding up to entries blobs.
// entries defaults to DefaultCacheEntries if <= 0.
func NewCachingStore(inner BlobStore, entries int) (*CachingStore, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}

	cache, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, err
	}

	return &CachingStore{inner: inner, cache: cache}, nil
}

// Open returns the cached content or reads the whole blob from the inner
// store and caches it.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(name); ok {
		return &memoryBlob{data: data}, nil
	}

	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	data, err := ReadAll(ctx, b)
	if err != nil {
		return nil, err
	}

	s.cache.Add(name, data)
	return &memoryBlob{data: data}, nil
}

// Create creates a blob in the inner store. The cache entry is dropped when
// the blob is closed.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingBlob{WritableBlob: w, store: s, name: name}, nil
}

// Put writes through to the inner store and drops the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob from the inner store and the cache.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

// List passes through to the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Len returns the number of cached blobs.
func (s *CachingStore) Len() int {
	return s.cache.Len()
}

type invalidatingBlob struct {
	WritableBlob
	store *CachingStore
	name  string
}

func (b *invalidatingBlob) Close() error {
	defer b.store.cache.Remove(b.name)
	return b.WritableBlob.Close()
}

var (
	_ BlobStore = (*LocalStore)(nil)
	_ BlobStore = (*MemoryStore)(nil)
	_ BlobStore = (*CachingStore)(nil)

	_ Mappable = (*localBlob)(nil)
	_ Mappable = (*memoryBlob)(nil)
)
