package octree

import "fmt"

// Key addresses a voxel at the deepest level of a tree. Bit i of each axis (counting from the most
// significant used bit) selects the octant at depth i.
type Key struct {
	X, Y, Z uint32
}

// ChildIndex returns the octant (0-7) selected by the bits of k under mask.
func (k Key) ChildIndex(mask uint32) uint8 {
	var idx uint8
	if k.X&mask != 0 {
		idx |= 4
	}
	if k.Y&mask != 0 {
		idx |= 2
	}
	if k.Z&mask != 0 {
		idx |= 1
	}
	return idx
}

// Child appends the octant idx to k, descending one level.
func (k Key) Child(idx uint8) Key {
	return Key{
		X: k.X<<1 | uint32(idx>>2&1),
		Y: k.Y<<1 | uint32(idx>>1&1),
		Z: k.Z<<1 | uint32(idx&1),
	}
}

// Fits reports whether k can address a voxel in a tree of the given depth.
func (k Key) Fits(depth uint) bool {
	limit := uint32(1) << depth
	return k.X < limit && k.Y < limit && k.Z < limit
}

func (k Key) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k.X, k.Y, k.Z)
}
