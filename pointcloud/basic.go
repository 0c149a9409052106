package pointcloud

import (
	"github.com/golang/geo/r3"
)

// BasicPointCloud is the basic implementation of the PointCloud interface backed by
// a slice of points.
type BasicPointCloud struct {
	points []r3.Vector
	meta   MetaData
}

// New returns an empty BasicPointCloud.
func New() *BasicPointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty, preallocated BasicPointCloud.
func NewWithPrealloc(size int) *BasicPointCloud {
	return &BasicPointCloud{
		points: make([]r3.Vector, 0, size),
		meta:   NewMetaData(),
	}
}

// NewFromVectors returns a BasicPointCloud holding pts in order.
func NewFromVectors(pts []r3.Vector) *BasicPointCloud {
	cloud := NewWithPrealloc(len(pts))
	for _, p := range pts {
		cloud.Append(p)
	}
	return cloud
}

// Size returns the number of points.
func (cloud *BasicPointCloud) Size() int {
	return len(cloud.points)
}

// MetaData returns the bounds of the finite points.
func (cloud *BasicPointCloud) MetaData() MetaData {
	return cloud.meta
}

// At returns the point at index i.
func (cloud *BasicPointCloud) At(i int) r3.Vector {
	return cloud.points[i]
}

// Append adds p to the end of the cloud and returns its index.
func (cloud *BasicPointCloud) Append(p r3.Vector) int {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
	return len(cloud.points) - 1
}

// Iterate calls fn for every point in index order until it returns false.
func (cloud *BasicPointCloud) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range cloud.points {
		if !fn(i, p) {
			return
		}
	}
}

// Vectors returns a copy of the points.
func (cloud *BasicPointCloud) Vectors() Vectors {
	return append(Vectors(nil), cloud.points...)
}
