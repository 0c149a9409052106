package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/octree/octree"
)

// rayBounds holds the ray parameters at which the ray crosses the lower and upper planes of a
// voxel along each axis.
type rayBounds struct {
	min, max r3.Vector
}

// rayVisitor receives the key of every occupied voxel pierced by a ray, in ray order. It returns
// false to stop the traversal.
type rayVisitor func(key octree.Key, leaf octree.Container[int]) bool

// IntersectedVoxelCenters returns the centers of the occupied voxels pierced by the ray, ordered
// from the origin outward. A positive maxVoxels limits the number returned.
func (o *Octree) IntersectedVoxelCenters(origin, direction r3.Vector, maxVoxels int) []r3.Vector {
	var centers []r3.Vector
	o.traverseRay(origin, direction, func(key octree.Key, _ octree.Container[int]) bool {
		centers = append(centers, o.leafCenter(key))
		return maxVoxels <= 0 || len(centers) < maxVoxels
	})
	return centers
}

// IntersectedVoxelIndices returns the point indices of the occupied voxels pierced by the ray,
// voxel by voxel from the origin outward. A positive maxVoxels limits the number of voxels read.
func (o *Octree) IntersectedVoxelIndices(origin, direction r3.Vector, maxVoxels int) []int {
	var indices []int
	voxels := 0
	o.traverseRay(origin, direction, func(_ octree.Key, leaf octree.Container[int]) bool {
		indices = append(indices, leaf.Data()...)
		voxels++
		return maxVoxels <= 0 || voxels < maxVoxels
	})
	return indices
}

// traverseRay walks the octree along the ray. The ray is mirrored into the positive octant and
// octant indices are mirrored back with the XOR mask a.
func (o *Octree) traverseRay(origin, direction r3.Vector, visit rayVisitor) {
	if o.tree.LeafCount() == 0 || !IsFinite(origin) || !IsFinite(direction) {
		return
	}

	const minComponent = 1e-10
	if direction.X == 0 {
		direction.X = minComponent
	}
	if direction.Y == 0 {
		direction.Y = minComponent
	}
	if direction.Z == 0 {
		direction.Z = minComponent
	}

	var a uint8
	if direction.X < 0 {
		origin.X = o.min.X + o.max.X - origin.X
		direction.X = -direction.X
		a |= 4
	}
	if direction.Y < 0 {
		origin.Y = o.min.Y + o.max.Y - origin.Y
		direction.Y = -direction.Y
		a |= 2
	}
	if direction.Z < 0 {
		origin.Z = o.min.Z + o.max.Z - origin.Z
		direction.Z = -direction.Z
		a |= 1
	}

	bounds := rayBounds{
		min: r3.Vector{
			X: (o.min.X - origin.X) / direction.X,
			Y: (o.min.Y - origin.Y) / direction.Y,
			Z: (o.min.Z - origin.Z) / direction.Z,
		},
		max: r3.Vector{
			X: (o.max.X - origin.X) / direction.X,
			Y: (o.max.Y - origin.Y) / direction.Y,
			Z: (o.max.Z - origin.Z) / direction.Z,
		},
	}
	enter := math.Max(bounds.min.X, math.Max(bounds.min.Y, bounds.min.Z))
	exit := math.Min(bounds.max.X, math.Min(bounds.max.Y, bounds.max.Z))
	if enter < exit {
		o.traverseRayRecursive(bounds, a, o.tree.Root(), octree.Key{}, visit)
	}
}

// traverseRayRecursive returns false once the visitor asked to stop.
func (o *Octree) traverseRayRecursive(b rayBounds, a uint8, node octree.Node[int], key octree.Key, visit rayVisitor) bool {
	if b.max.X < 0 || b.max.Y < 0 || b.max.Z < 0 {
		return true
	}
	if node.IsLeaf() {
		return visit(key, node.Container())
	}

	mid := b.min.Add(b.max).Mul(0.5)
	for curr := firstIntersectedNode(b.min, mid); curr < 8; {
		// Sub-box of octant curr: the upper half along every axis whose bit is set.
		child := rayBounds{min: b.min, max: mid}
		if curr&4 != 0 {
			child.min.X, child.max.X = mid.X, b.max.X
		}
		if curr&2 != 0 {
			child.min.Y, child.max.Y = mid.Y, b.max.Y
		}
		if curr&1 != 0 {
			child.min.Z, child.max.Z = mid.Z, b.max.Z
		}

		childIdx := curr ^ a
		if childNode, ok := node.Child(childIdx); ok {
			if !o.traverseRayRecursive(child, a, childNode, key.Child(childIdx), visit) {
				return false
			}
		}
		curr = nextIntersectedNode(child.max, curr)
	}
	return true
}

// firstIntersectedNode returns the octant the ray enters first, found from the entry plane.
func firstIntersectedNode(tMin, tMid r3.Vector) uint8 {
	var curr uint8
	switch {
	case tMin.X > tMin.Y && tMin.X > tMin.Z:
		// Entry plane YZ.
		if tMid.Y < tMin.X {
			curr |= 2
		}
		if tMid.Z < tMin.X {
			curr |= 1
		}
	case tMin.X > tMin.Y || tMin.Y <= tMin.Z:
		// Entry plane XY.
		if tMid.X < tMin.Z {
			curr |= 4
		}
		if tMid.Y < tMin.Z {
			curr |= 2
		}
	default:
		// Entry plane XZ.
		if tMid.X < tMin.Y {
			curr |= 4
		}
		if tMid.Z < tMin.Y {
			curr |= 1
		}
	}
	return curr
}

// nextIntersectedNode returns the octant after curr given the exit parameters of curr's sub-box.
// The ray leaves through the plane it reaches first; leaving through an upper plane exits the
// parent, reported as 8.
func nextIntersectedNode(tExit r3.Vector, curr uint8) uint8 {
	next := func(bit uint8) uint8 {
		if curr&bit != 0 {
			return 8
		}
		return curr | bit
	}
	if tExit.X < tExit.Y {
		if tExit.X < tExit.Z {
			return next(4)
		}
		return next(1)
	}
	if tExit.Y < tExit.Z {
		return next(2)
	}
	return next(1)
}
