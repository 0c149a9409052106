package pointcloud

import (
	"math/rand"

	"github.com/golang/geo/r3"
)

// MakeTestPointCloud creates a test point cloud with 3 points.
func MakeTestPointCloud() *BasicPointCloud {
	return NewFromVectors([]r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
	})
}

// MakeRandomPointCloud creates a reproducible cloud of n points uniformly spread over a cube of the
// given side whose lower corner is at the origin.
func MakeRandomPointCloud(seed int64, n int, side float64) *BasicPointCloud {
	r := rand.New(rand.NewSource(seed))
	cloud := NewWithPrealloc(n)
	for i := 0; i < n; i++ {
		cloud.Append(r3.Vector{X: r.Float64() * side, Y: r.Float64() * side, Z: r.Float64() * side})
	}
	return cloud
}
