// Package vecmath provides the float64 vector kernels shared by the
// quantizers. Dot products and accumulation delegate to gonum; squared
// Euclidean distance is kept local because gonum only exposes the rooted
// norm.
package vecmath

import "gonum.org/v1/gonum/floats"

// Dot calculates the dot product of two vectors of equal length.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// SquaredL2 calculates the squared L2 distance.
func SquaredL2(a, b []float64) float64 {
	var distance float64
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}

	return distance
}

// L2 calculates the Euclidean distance.
func L2(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// AddTo accumulates src into dst element-wise.
func AddTo(dst, src []float64) {
	floats.Add(dst, src)
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float64, scalar float64) {
	floats.Scale(scalar, a)
}

// Nearest returns the index of the centroid closest to v together with the
// squared distance. centroids is a flat k*dim slice. Ties resolve to the
// lowest index because only strictly smaller distances replace the best.
func Nearest(v, centroids []float64, dim int) (int, float64) {
	best := -1
	bestDist := 0.0
	for j := 0; j*dim < len(centroids); j++ {
		d := SquaredL2(v, centroids[j*dim:(j+1)*dim])
		if best < 0 || d < bestDist {
			best = j
			bestDist = d
		}
	}

	return best, bestDist
}
