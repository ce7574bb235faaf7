// Package testutil provides testing utilities for vecquant.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded generators for tensors with a known value
// distribution and helpers to compare reconstructions.
//
// # Random Tensor Generation
//
//	rng := testutil.NewRNG(seed)
//	x := rng.UniformTensor(1000, 64)          // uniform [-1, 1)
//	g := rng.GaussianTensor(1000, 64)         // standard normal
//	c := rng.ClusteredTensor(1000, 8, 4, 0.05) // 4 tight clusters
//
// # Reference Dot Products
//
//	exact := testutil.ExactDots(query, x)
//	top := testutil.ExactTopK(query, x, 10)
package testutil
