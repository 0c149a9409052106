package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/octree/octree"
	"go.viam.com/octree/utils"
)

// BoundingBox returns the corners of the indexed cube. Points p with min <= p < max are indexable.
func (o *Octree) BoundingBox() (r3.Vector, r3.Vector) {
	return o.min, o.max
}

func (o *Octree) hasLeaves() bool {
	if o.tree.LeafCount() > 0 {
		return true
	}
	return o.double != nil && o.double.PreviousLeafCount() > 0
}

// DefineBoundingBox fixes the indexed region before points are added. The box becomes a cube of
// side resolution*2^depth centered on [min, max], with depth the smallest covering the box.
func (o *Octree) DefineBoundingBox(min, max r3.Vector) error {
	if o.hasLeaves() {
		return errors.Wrap(octree.ErrInvalidState, "bounding box can only be defined on an empty octree")
	}
	if !IsFinite(min) || !IsFinite(max) {
		return errors.Wrapf(octree.ErrInvalidConfiguration, "bounding box corners %v, %v must be finite", min, max)
	}
	if max.X < min.X || max.Y < min.Y || max.Z < min.Z {
		return errors.Wrapf(octree.ErrInvalidConfiguration, "bounding box max %v is below min %v", max, min)
	}
	return o.fitBoundingBox(min, max)
}

// DefineBoundingBoxFromCloud fits the box around the finite points of the input cloud, padded by
// half a resolution.
func (o *Octree) DefineBoundingBoxFromCloud() error {
	if o.cloud == nil {
		return errors.Wrap(octree.ErrInvalidState, "no input cloud set")
	}
	meta := o.cloud.MetaData()
	if meta.Count() == 0 {
		return errors.Wrap(octree.ErrInvalidState, "input cloud has no finite points")
	}
	half := r3.Vector{X: o.resolution / 2, Y: o.resolution / 2, Z: o.resolution / 2}
	return o.DefineBoundingBox(meta.Min().Sub(half), meta.Max().Add(half))
}

func (o *Octree) fitBoundingBox(min, max r3.Vector) error {
	span := max.Sub(min)
	// One extra voxel keeps points lying exactly on max inside the half open cube.
	maxVoxels := math.Floor(math.Max(span.X, math.Max(span.Y, span.Z))/o.resolution) + 1
	depth := utils.CeilLog2(math.Max(maxVoxels, 2))
	if depth > octree.MaxDepth {
		o.logger.Warnw("bounding box needs a deeper tree than supported, clamping",
			"depth", depth, "max_depth", octree.MaxDepth)
		depth = octree.MaxDepth
	}
	if err := o.tree.SetTreeDepth(depth); err != nil {
		return err
	}

	center := min.Add(max).Mul(0.5)
	half := o.sideLength() / 2
	o.setBox(center.Sub(r3.Vector{X: half, Y: half, Z: half}))
	o.logger.Debugw("defined octree bounding box", "min", o.min, "max", o.max, "depth", depth)
	return nil
}

func (o *Octree) sideLength() float64 {
	return o.resolution * math.Ldexp(1, int(o.tree.TreeDepth()))
}

// setBox anchors the cube at min using the current tree depth.
func (o *Octree) setBox(min r3.Vector) {
	side := o.sideLength()
	o.min = min
	o.max = min.Add(r3.Vector{X: side, Y: side, Z: side})
	o.boxDefined = true
}

func (o *Octree) contains(p r3.Vector) bool {
	return p.X >= o.min.X && p.X < o.max.X &&
		p.Y >= o.min.Y && p.Y < o.max.Y &&
		p.Z >= o.min.Z && p.Z < o.max.Z
}

// adoptBoundingBoxToPoint grows the box until it contains p. With voxels present the tree gains a
// level per doubling and the old root keeps its voxels in the octant facing away from p.
func (o *Octree) adoptBoundingBoxToPoint(p r3.Vector) error {
	if !o.boxDefined {
		half := o.resolution / 2
		return o.fitBoundingBox(p.Sub(r3.Vector{X: half, Y: half, Z: half}), p.Add(r3.Vector{X: half, Y: half, Z: half}))
	}
	if o.contains(p) {
		return nil
	}
	if !o.hasLeaves() {
		if err := o.fitBoundingBox(minVector(o.min, p), maxVector(o.max, p)); err != nil {
			return err
		}
		// A clamped depth can leave the refit cube short of p.
		if !o.contains(p) {
			return errors.Wrapf(octree.ErrOutOfRange, "point %v lies outside the largest bounding box %v-%v", p, o.min, o.max)
		}
		return nil
	}

	for !o.contains(p) {
		upperX, upperY, upperZ := p.X >= o.max.X, p.Y >= o.max.Y, p.Z >= o.max.Z
		var childIdx uint8
		if !upperX {
			childIdx |= 4
		}
		if !upperY {
			childIdx |= 2
		}
		if !upperZ {
			childIdx |= 1
		}

		side := o.sideLength()
		if err := o.tree.ExpandRoot(childIdx); err != nil {
			return errors.Wrapf(err, "cannot grow bounding box to contain %v", p)
		}
		newMin := o.min
		if !upperX {
			newMin.X -= side
		}
		if !upperY {
			newMin.Y -= side
		}
		if !upperZ {
			newMin.Z -= side
		}
		o.setBox(newMin)
		o.logger.Debugw("grew octree bounding box", "min", o.min, "max", o.max, "depth", o.tree.TreeDepth())
	}
	return nil
}

// keyForPoint returns the key of the deepest voxel containing p, or false when p is outside.
func (o *Octree) keyForPoint(p r3.Vector) (octree.Key, bool) {
	if !o.boxDefined || !o.contains(p) {
		return octree.Key{}, false
	}
	limit := uint32(1)<<o.tree.TreeDepth() - 1
	axisKey := func(v, min float64) uint32 {
		// Rounding may land a point just below max on the next voxel.
		return uint32(math.Min(math.Floor((v-min)/o.resolution), float64(limit)))
	}
	return octree.Key{
		X: axisKey(p.X, o.min.X),
		Y: axisKey(p.Y, o.min.Y),
		Z: axisKey(p.Z, o.min.Z),
	}, true
}

// voxelSide returns the side length of voxels at the given level, the root being level 0.
func (o *Octree) voxelSide(level uint) float64 {
	return o.resolution * math.Ldexp(1, int(o.tree.TreeDepth())-int(level))
}

// squaredVoxelDiameter returns the squared diagonal of voxels at the given level.
func (o *Octree) squaredVoxelDiameter(level uint) float64 {
	return 3 * utils.Square(o.voxelSide(level))
}

// VoxelBounds returns the corners of the voxel addressed by key at the given level. The key holds
// one bit per level below the root.
func (o *Octree) VoxelBounds(key octree.Key, level uint) (r3.Vector, r3.Vector) {
	side := o.voxelSide(level)
	lo := o.min.Add(r3.Vector{X: float64(key.X), Y: float64(key.Y), Z: float64(key.Z)}.Mul(side))
	return lo, lo.Add(r3.Vector{X: side, Y: side, Z: side})
}

func (o *Octree) voxelCenter(key octree.Key, level uint) r3.Vector {
	side := o.voxelSide(level)
	return r3.Vector{
		X: o.min.X + (float64(key.X)+0.5)*side,
		Y: o.min.Y + (float64(key.Y)+0.5)*side,
		Z: o.min.Z + (float64(key.Z)+0.5)*side,
	}
}

func (o *Octree) leafCenter(key octree.Key) r3.Vector {
	return o.voxelCenter(key, o.tree.TreeDepth())
}
