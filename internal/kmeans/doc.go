// Package kmeans implements Lloyd's k-means clustering used to train
// quantization codebooks.
//
// Training is fully deterministic for a given (samples, config) pair:
// initialization is a seeded farthest-first traversal, ties always resolve
// to the lowest index, and the centroid reduction runs in sample order even
// when the assignment step is spread across workers.
package kmeans
