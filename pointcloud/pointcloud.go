// Package pointcloud defines a point cloud, provides a slice backed implementation of one and
// indexes clouds with an octree for voxel, nearest neighbor, radius and ray queries.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
	count                  int
}

// NewMetaData creates a new MetaData whose bounds are inverted until a point is merged.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the bounds and totals with p. Non-finite points are ignored.
func (meta *MetaData) Merge(p r3.Vector) {
	if !IsFinite(p) {
		return
	}
	meta.MinX = math.Min(meta.MinX, p.X)
	meta.MinY = math.Min(meta.MinY, p.Y)
	meta.MinZ = math.Min(meta.MinZ, p.Z)
	meta.MaxX = math.Max(meta.MaxX, p.X)
	meta.MaxY = math.Max(meta.MaxY, p.Y)
	meta.MaxZ = math.Max(meta.MaxZ, p.Z)

	meta.totalX += p.X
	meta.totalY += p.Y
	meta.totalZ += p.Z
	meta.count++
}

// Count returns the number of finite points merged.
func (meta *MetaData) Count() int {
	return meta.count
}

// Center returns the mean of the finite points merged.
func (meta *MetaData) Center() r3.Vector {
	if meta.count == 0 {
		return r3.Vector{}
	}
	return r3.Vector{X: meta.totalX, Y: meta.totalY, Z: meta.totalZ}.Mul(1 / float64(meta.count))
}

// Min returns the lower corner of the bounds.
func (meta *MetaData) Min() r3.Vector {
	return r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
}

// Max returns the upper corner of the bounds.
func (meta *MetaData) Max() r3.Vector {
	return r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ}
}

// PointCloud is an index addressable collection of points. Indices are stable for the lifetime of
// the cloud.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data
	MetaData() MetaData

	// At returns the point at index i.
	At(i int) r3.Vector

	// Iterate iterates over all points in the cloud and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	Iterate(fn func(i int, p r3.Vector) bool)
}

// AppendablePointCloud is a PointCloud that can grow.
type AppendablePointCloud interface {
	PointCloud

	// Append adds p and returns its index.
	Append(p r3.Vector) int
}

// IsFinite returns false if any coordinate of p is NaN or infinite.
func IsFinite(p r3.Vector) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsNaN(p.Z) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) && !math.IsInf(p.Z, 0)
}
