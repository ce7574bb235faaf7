package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)

	ctx := context.Background()

	// 1. Create a blob
	blobName := "pq/codes-001.vqnt"
	data := []byte("hello world, this is a test blob for vecquant")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible before Close.
	_, err = os.Stat(filepath.Join(tmpDir, "pq", "codes-001.vqnt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(tmpDir, "pq", "codes-001.vqnt"))
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6) // "world"
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	// 3. ReadRange
	rc, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "this", string(content))

	// 4. Mappable
	all, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, all)

	// 5. List and Delete
	require.NoError(t, store.Put(ctx, "uniform/a.vqnt", []byte("a")))
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"pq/codes-001.vqnt", "uniform/a.vqnt"}, names)

	names, err = store.List(ctx, "uniform/")
	require.NoError(t, err)
	assert.Equal(t, []string{"uniform/a.vqnt"}, names)

	require.NoError(t, store.Delete(ctx, "uniform/a.vqnt"))
	require.NoError(t, store.Delete(ctx, "uniform/a.vqnt"))

	_, err = store.Open(ctx, "uniform/a.vqnt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "x", []byte("first")))
	require.NoError(t, store.Put(ctx, "x", []byte("second")))

	b, err := store.Open(ctx, "x")
	require.NoError(t, err)
	defer b.Close()

	data, err := ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalBlobStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalBlobStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewLocalStore(t.TempDir())
	assert.ErrorIs(t, store.Put(ctx, "x", []byte("x")), context.Canceled)
	_, err := store.Open(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
