// Package quantization converts dense float64 tensors into compact low-bit
// representations and back.
//
// Three methods are provided:
//
//   - Uniform symmetric quantization: b-bit signed codes with one scale
//   - Vector quantization (VQ): k-means codebook over scalars or rows
//   - Product quantization (PQ): one codebook per column subspace
//
// # Uniform Quantization
//
// Maps every element onto [-qmax, qmax] with qmax = 2^(b-1)-1:
//
//	q, err := quantization.Quantize(x, 8)
//	approx, err := quantization.Dequantize(q)  // |x - approx| <= scale/2
//
// Rounding is half away from zero. An all-zero tensor quantizes to scale 1
// and zero codes unless WithStrictDegeneracy is given.
//
// # Vector Quantization
//
//	vq, err := quantization.NewVectorQuantizer(quantization.SampleRows,
//	    quantization.DefaultClusterConfig(256))
//	err = vq.Train(ctx, x)
//	codes, err := vq.EncodeCodes(x)  // rows x 1
//
// # Product Quantization
//
// Splits every row into M subvectors and quantizes each subspace
// independently:
//
//	pq, err := quantization.NewProductQuantizer(128, 8, 256,
//	    quantization.WithPQSeed(42))
//	err = pq.Train(ctx, x)
//	codes, err := pq.EncodeCodes(x)  // rows x 8
//
// # Lookup Tables
//
// Dot products between a query and PQ-encoded rows are computed without
// decoding, by summing precomputed per-subspace partial products:
//
//	engine, err := quantization.NewLookupEngine(pq, 0)
//	tables, err := engine.BuildTables(query)
//	scores, err := engine.ApproxDotAll(ctx, codes, tables)
//
// Clustering is deterministic for a given seed: initialization is a
// seeded farthest-first traversal and all reductions run in sample order,
// independent of the worker count.
//
// Trained quantizers are immutable and safe for concurrent use.
package quantization
