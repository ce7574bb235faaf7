// Package vecquant compresses float matrices with uniform symmetric scalar
// quantization, vector quantization and product quantization, and answers
// dot-product queries directly on product-quantized codes.
//
// # Quick Start
//
//	ctx := context.Background()
//	c, _ := vecquant.New(vecquant.WithSeed(1), vecquant.WithWorkers(4))
//
//	// Uniform: one scale for the whole tensor.
//	q, _ := c.Quantize(ctx, x, 8)
//
//	// Product quantization: 4 subspaces with 256 centroids each.
//	pq, _ := c.TrainPQ(ctx, x, 4, 256)
//	art, _ := c.Encode(ctx, pq, x)
//
//	// Approximate dot products of a query with every row.
//	scores, _ := c.DotProducts(ctx, pq, art.(*quantization.PQArtifact).Codes(), query, nil)
//
// # Persistence
//
// Artifacts are written as self-describing files to a blobstore.BlobStore:
//
//	c, _ := vecquant.New(vecquant.WithBlobStore(blobstore.NewLocalStore("./artifacts")))
//	c.Save(ctx, "pq/model.vqnt", art)
//	art, _, _ = c.Load(ctx, "pq/model.vqnt")
//
// Cloud mode:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("artifacts/"))
//	c, _ := vecquant.New(vecquant.WithBlobStore(s3Store))
//
// # Observability
//
// Every facade operation is logged through Logger (log/slog) and reported to
// a MetricsCollector. NewPrometheusCollector exports them via
// prometheus/client_golang.
//
// # Packages
//
//   - quantization: quantizers, codebooks, lookup tables (no logging)
//   - tensor: dense row-major float64 matrices
//   - metric: reconstruction error metrics
//   - persistence: artifact file format
//   - blobstore: local, memory, caching, S3 and MinIO storage
//   - codec: payload codecs
package vecquant
