package s3

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecquant/blobstore"
	"github.com/hupe1980/vecquant/internal/hash"
)

func TestStore_PutOpenRead(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "prefix")

	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "pq/model.vqnt", data))

	assert.Equal(t, data, client.objects["prefix/pq/model.vqnt"])
	assert.Equal(t, hash.CRC32CBase64(data), client.checksums["prefix/pq/model.vqnt"])

	blob, err := store.Open(ctx, "pq/model.vqnt")
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()
	assert.Equal(t, int64(10), blob.Size())

	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "2345", string(buf))

	n, err = blob.ReadAt(ctx, buf, 8)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "89", string(buf[:n]))

	_, err = blob.ReadAt(ctx, buf, 10)
	assert.ErrorIs(t, err, io.EOF)

	rc, err := blob.ReadRange(ctx, 7, 100)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "789", string(got))

	all, err := blobstore.ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, all)
}

func TestStore_OpenNotFound(t *testing.T) {
	store := NewStore(newFakeClient(), "bucket", "prefix")

	_, err := store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.pageSize = 2
	store := NewStore(client, "bucket", "prefix/")

	for _, name := range []string{"file1", "dir/file2", "dir/file3", "dirx/file4"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}
	client.objects["other/file5"] = []byte("x")

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/file2", "dir/file3", "dirx/file4", "file1"}, names)

	names, err = store.List(ctx, "dir/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/file2", "dir/file3"}, names)
}

func TestStore_CreateStreams(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "")

	w, err := store.Create(ctx, "stream.bin")
	require.NoError(t, err)

	_, err = w.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.Equal(t, "hello world", string(client.objects["stream.bin"]))
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewStore(client, "bucket", "p")

	require.NoError(t, store.Put(ctx, "a", []byte("a")))
	require.NoError(t, store.Delete(ctx, "a"))

	_, err := store.Open(ctx, "a")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewStore(newFakeClient(), "bucket", "")
	_, err := store.Create(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultUploadConfig(t *testing.T) {
	cfg := DefaultUploadConfig()
	assert.Equal(t, int64(8*1024*1024), cfg.PartSize)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.True(t, cfg.EnableChecksum)
	assert.False(t, cfg.LeavePartsOnError)
}
