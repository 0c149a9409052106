// Package utils contains small helpers shared by the octree packages.
package utils

import "math"

// Square returns n*n. Math.pow( x, 2 ) is slow, this is faster.
func Square(n float64) float64 {
	return n * n
}

// CeilLog2 returns the smallest d with 2^d >= n. Values below 1 yield 0.
func CeilLog2(n float64) uint {
	if n <= 1 {
		return 0
	}
	return uint(math.Ceil(math.Log2(n)))
}
