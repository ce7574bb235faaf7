package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecquant/blobstore"
)

func TestStore_KeyAndRelative(t *testing.T) {
	s := NewStore(nil, "bucket", "artifacts/")
	assert.Equal(t, "artifacts/pq/a.vqnt", s.key("pq/a.vqnt"))
	assert.Equal(t, "pq/a.vqnt", s.relative("artifacts/pq/a.vqnt"))

	root := NewStore(nil, "bucket", "")
	assert.Equal(t, "a", root.key("a"))
	assert.Equal(t, "a", root.relative("a"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestConnect_Validation(t *testing.T) {
	_, err := Connect(context.Background(), Config{Bucket: "b"})
	assert.Error(t, err)

	_, err = Connect(context.Background(), Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

// TestMinioStore_Integration requires a running MinIO instance and
// MINIO_ENDPOINT to be set.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping MinIO integration test: MINIO_ENDPOINT not set")
	}

	ctx := context.Background()

	store, err := Connect(ctx, Config{
		Endpoint:     endpoint,
		AccessKey:    envOr("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:    envOr("MINIO_SECRET_KEY", "minioadmin"),
		Bucket:       "test-vecquant",
		Prefix:       fmt.Sprintf("run-%d/", time.Now().UnixNano()),
		CreateBucket: true,
	})
	require.NoError(t, err)

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.txt", data))

	blob, err := store.Open(ctx, "test.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "minio", string(buf))

	rc, err := blob.ReadRange(ctx, 12, 100)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "world", string(got))

	w, err := store.Create(ctx, "dir/stream.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/stream.bin", "test.txt"}, names)

	require.NoError(t, store.Delete(ctx, "test.txt"))
	require.NoError(t, store.Delete(ctx, "dir/stream.bin"))
	require.NoError(t, store.Delete(ctx, "missing"))

	_, err = store.Open(ctx, "test.txt")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
