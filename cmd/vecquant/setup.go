package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/hupe1980/vecquant"
	"github.com/hupe1980/vecquant/blobstore"
	minioblob "github.com/hupe1980/vecquant/blobstore/minio"
	s3blob "github.com/hupe1980/vecquant/blobstore/s3"
	"github.com/hupe1980/vecquant/codec"
	"github.com/hupe1980/vecquant/tensor"
)

// env is the per-invocation state shared by all subcommands.
type env struct {
	c     *vecquant.Compressor
	store blobstore.BlobStore
	out   io.Writer
	close func()
}

// setup applies the config file, then builds logger, store, metrics and
// compressor from the resolved flag values.
func setup(ctx context.Context, cmd *cli.Command, extra ...vecquant.Option) (*env, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	applyConfig(cmd, cfg)

	logger, err := newLogger(logLevel, logFormat)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q (available: %s)", codecName, strings.Join(codec.Names(), ", "))
	}

	ct, err := vecquant.ParseCompression(compression)
	if err != nil {
		return nil, err
	}

	opts := []vecquant.Option{
		vecquant.WithLogger(logger),
		vecquant.WithBlobStore(store),
		vecquant.WithCodec(c),
		vecquant.WithCompression(ct),
		vecquant.WithWorkers(workers),
		vecquant.WithSeed(uint64(seed)),
		vecquant.WithMaxIterations(maxIter),
		vecquant.WithTolerance(tolerance),
	}

	closeFn := func() {}
	if metricsAddr != "" {
		collector, shutdown, err := startMetrics(metricsAddr, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vecquant.WithMetricsCollector(collector))
		closeFn = shutdown
	}

	compressor, err := vecquant.New(append(opts, extra...)...)
	if err != nil {
		closeFn()
		return nil, err
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	return &env{c: compressor, store: store, out: out, close: closeFn}, nil
}

func newLogger(level, format string) (*vecquant.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch format {
	case "", "text":
		return vecquant.NewTextLogger(lvl), nil
	case "json":
		return vecquant.NewJSONLogger(lvl), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (text, json)", format)
	}
}

func openStore(ctx context.Context) (blobstore.BlobStore, error) {
	var (
		store  blobstore.BlobStore
		remote bool
	)

	switch {
	case s3Bucket != "":
		var opts []s3blob.Option
		if s3Prefix != "" {
			opts = append(opts, s3blob.WithPrefix(s3Prefix))
		}
		if s3Region != "" {
			opts = append(opts, s3blob.WithRegion(s3Region))
		}
		if s3Endpoint != "" {
			opts = append(opts, s3blob.WithEndpoint(s3Endpoint))
		}
		s, err := s3blob.New(ctx, s3Bucket, opts...)
		if err != nil {
			return nil, err
		}
		store, remote = s, true

	case minioEndpoint != "":
		s, err := minioblob.Connect(ctx, minioblob.Config{
			Endpoint:     minioEndpoint,
			AccessKey:    minioAccessKey,
			SecretKey:    minioSecretKey,
			Secure:       minioSecure,
			Bucket:       minioBucket,
			CreateBucket: true,
		})
		if err != nil {
			return nil, err
		}
		store, remote = s, true

	default:
		store = blobstore.NewLocalStore(storeDir)
	}

	if cacheEntries > 0 && remote {
		return blobstore.NewCachingStore(store, cacheEntries)
	}
	return store, nil
}

func startMetrics(addr string, logger *vecquant.Logger) (*vecquant.PrometheusCollector, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector, err := vecquant.NewPrometheusCollector(reg)
	if err != nil {
		return nil, nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return collector, shutdown, nil
}

// readMatrix reads a JSON matrix ([[...],[...]]) from path, or stdin for "-".
func readMatrix(path string) (*tensor.Tensor, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	rows, err := codec.DecodeMatrix(codec.Default, data)
	if err != nil {
		return nil, err
	}
	return tensor.FromRows(rows)
}

// parseVector parses a JSON array of numbers.
func parseVector(s string) ([]float64, error) {
	var v []float64
	if err := codec.Default.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parse vector: %w", err)
	}
	if len(v) == 0 {
		return nil, errors.New("parse vector: empty")
	}
	return v, nil
}

// parseRows parses a row selection such as "0,2,5-9". The empty string
// selects every row and yields nil.
func parseRows(expr string) (*roaring.Bitmap, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	bm := roaring.New()
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")

		start, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid row %q: %w", part, err)
		}
		if !isRange {
			bm.Add(uint32(start))
			continue
		}

		end, err := strconv.ParseUint(strings.TrimSpace(hi), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid row range %q: %w", part, err)
		}
		if end < start {
			return nil, fmt.Errorf("invalid row range %q: end before start", part)
		}
		bm.AddRange(start, end+1)
	}
	return bm, nil
}
