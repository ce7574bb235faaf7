package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

const workedJSON = `[[0.1,-0.5,0,1.0],[2.5,-1.2,0.7,-0.3],[0.9,1.5,-2.0,0.2]]`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := app.Run(context.Background(), append([]string{"vecquant"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCLI_PQAndLookup(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "x.json", workedJSON)
	store := filepath.Join(dir, "store")

	out, err := run(t, "pq", "-i", input, "--store-dir", store, "--seed", "1", "--m", "2", "--k", "3", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err, out)
	assert.Contains(t, out, "trained: m=2 k=3")
	assert.Contains(t, out, "mse=0 ")
	assert.FileExists(t, filepath.Join(store, "pq.vqnt"))

	out, err = run(t, "lookup", "-a", "pq.vqnt", "--store-dir", store, "-q", "[0.2,-0.1,0.5,1.0]")
	require.NoError(t, err, out)
	assert.Equal(t, "0\t1.07\n1\t0.67\n2\t-0.77\n", out)

	out, err = run(t, "lookup", "-a", "pq.vqnt", "--store-dir", store, "-q", "[0.2,-0.1,0.5,1.0]", "--rows", "1-2", "--top-k", "1")
	require.NoError(t, err, out)
	assert.Equal(t, "1\t0.67\n", out)

	_, err = run(t, "lookup", "-a", "pq.vqnt", "--store-dir", store)
	assert.Error(t, err)
}

func TestCLI_UniformInspectList(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "x.json", workedJSON)
	store := filepath.Join(dir, "store")

	out, err := run(t, "uniform", "-i", input, "--store-dir", store, "--compression", "zstd", "-o", "u/w.vqnt")
	require.NoError(t, err, out)
	assert.Contains(t, out, "scale: 0.0196850394 (bits=8, qmax=127)")

	out, err = run(t, "uniform", "-i", input, "--store-dir", store, "--scale", "0.01", "-o", "u/clamped.vqnt")
	require.NoError(t, err, out)
	assert.Contains(t, out, "clamped: 3 of 12 values")

	out, err = run(t, "inspect", "-a", "u/w.vqnt", "--store-dir", store, "--against", input)
	require.NoError(t, err, out)
	assert.Contains(t, out, "type:        Uniform")
	assert.Contains(t, out, "codec:       go-json")
	assert.Contains(t, out, "shape:       3x4")
	assert.Contains(t, out, "reconstruction: mse=")

	out, err = run(t, "list", "--store-dir", store, "--prefix", "u/")
	require.NoError(t, err, out)
	assert.Equal(t, []string{"u/clamped.vqnt", "u/w.vqnt"}, strings.Fields(out))

	_, err = run(t, "lookup", "-a", "u/w.vqnt", "--store-dir", store, "-q", "[1,2,3,4]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup needs PQ")
}

func TestCLI_VQWithConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "x.json", workedJSON)
	store := filepath.Join(dir, "from-config")
	cfg := writeFile(t, dir, "config.yaml", "store_dir: "+store+"\nseed: 3\ncodec: json\nmax_iterations: 10\n")

	out, err := run(t, "vq", "-i", input, "--config", cfg, "--k", "4")
	require.NoError(t, err, out)
	assert.Contains(t, out, "trained: k=4 mode=scalars")
	assert.FileExists(t, filepath.Join(store, "vq.vqnt"))

	out, err = run(t, "inspect", "-a", "vq.vqnt", "--config", cfg, "--decode")
	require.NoError(t, err, out)
	assert.Contains(t, out, "codec:       json")
	assert.Contains(t, out, "mode:        scalars")

	_, err = run(t, "vq", "-i", input, "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCLI_Errors(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "x.json", workedJSON)

	_, err := run(t, "uniform", "-i", input, "--store-dir", dir, "--bits", "1")
	assert.Error(t, err)

	_, err = run(t, "pq", "-i", input, "--store-dir", dir, "--m", "3")
	assert.Error(t, err)

	_, err = run(t, "vq", "-i", input, "--store-dir", dir, "--mode", "columns")
	assert.Error(t, err)

	_, err = run(t, "uniform", "-i", input, "--store-dir", dir, "--codec", "xml")
	assert.Error(t, err)

	_, err = run(t, "inspect", "-a", "missing.vqnt", "--store-dir", dir)
	assert.Error(t, err)
}

func TestParseRows(t *testing.T) {
	bm, err := parseRows("0, 2,5-7")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2, 5, 6, 7}, bm.ToArray())

	bm, err = parseRows("  ")
	require.NoError(t, err)
	assert.Nil(t, bm)

	_, err = parseRows("3-1")
	assert.Error(t, err)

	_, err = parseRows("a")
	assert.Error(t, err)

	_, err = parseRows("1-b")
	assert.Error(t, err)
}

func TestParseVector(t *testing.T) {
	v, err := parseVector("[0.5, -1, 2]")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1, 2}, v)

	_, err = parseVector("[]")
	assert.Error(t, err)

	_, err = parseVector("nope")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", `
store_dir: /tmp/a
s3:
  bucket: b
  prefix: p/
minio:
  secure: true
workers: 4
tolerance: 0.5
compression: lz4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a", cfg.StoreDir)
	assert.Equal(t, "b", cfg.S3.Bucket)
	assert.Equal(t, "p/", cfg.S3.Prefix)
	require.NotNil(t, cfg.MinIO.Secure)
	assert.True(t, *cfg.MinIO.Secure)
	require.NotNil(t, cfg.Workers)
	assert.Equal(t, 4, *cfg.Workers)
	require.NotNil(t, cfg.Tolerance)
	assert.Equal(t, 0.5, *cfg.Tolerance)
	assert.Nil(t, cfg.Seed)
	assert.Equal(t, "lz4", cfg.Compression)

	bad := writeFile(t, dir, "bad.yaml", "workers: [1, 2")
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug", "json")
	require.NoError(t, err)

	_, err = newLogger("loud", "text")
	assert.Error(t, err)

	_, err = newLogger("info", "xml")
	assert.Error(t, err)
}
