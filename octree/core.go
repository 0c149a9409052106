package octree

import (
	"github.com/pkg/errors"
)

// core holds the algorithms shared by every storage strategy. The root is always a branch.
type core[D any] struct {
	store       nodeStore[D]
	newLeaf     LeafFactory[D]
	root        nodeRef
	depth       uint
	depthMask   uint32
	leafCount   int
	branchCount int
}

func (c *core[D]) init(store nodeStore[D], depth uint, newLeaf LeafFactory[D]) error {
	if newLeaf == nil {
		return errors.Wrap(ErrInvalidConfiguration, "no leaf factory given")
	}
	c.store = store
	c.newLeaf = newLeaf
	c.root = store.newBranch()
	c.branchCount = 1
	return c.SetTreeDepth(depth)
}

// SetTreeDepth configures the number of levels below the root.
func (c *core[D]) SetTreeDepth(depth uint) error {
	if depth == 0 || depth > MaxDepth {
		return errors.Wrapf(ErrInvalidConfiguration, "tree depth %d outside [1, %d]", depth, MaxDepth)
	}
	if c.leafCount > 0 && depth != c.depth {
		return errors.Wrapf(ErrInvalidState, "cannot change depth of a tree holding %d leaves", c.leafCount)
	}
	c.depth = depth
	c.depthMask = 1 << (depth - 1)
	return nil
}

// TreeDepth returns the configured depth.
func (c *core[D]) TreeDepth() uint {
	return c.depth
}

// LeafCount returns the number of leaves.
func (c *core[D]) LeafCount() int {
	return c.leafCount
}

// BranchCount returns the number of branches, root included.
func (c *core[D]) BranchCount() int {
	return c.branchCount
}

// Add inserts value into the leaf at key. Keys that do not fit the depth are ignored.
func (c *core[D]) Add(key Key, value D) {
	if !key.Fits(c.depth) {
		return
	}
	c.createLeaf(key).Add(value)
}

func (c *core[D]) createLeaf(key Key) Container[D] {
	branch := c.root
	for mask := c.depthMask; ; mask >>= 1 {
		idx := key.ChildIndex(mask)
		next := c.store.child(branch, idx)
		if mask == 1 {
			if next == nilRef {
				next = c.store.newLeaf(c.newLeaf())
				c.store.setChild(branch, idx, next)
				c.leafCount++
			}
			return c.store.container(next)
		}
		if next == nilRef {
			next = c.store.newBranch()
			c.store.setChild(branch, idx, next)
			c.branchCount++
		}
		branch = next
	}
}

func (c *core[D]) findLeaf(key Key) nodeRef {
	if !key.Fits(c.depth) {
		return nilRef
	}
	n := c.root
	for mask := c.depthMask; mask > 0 && n != nilRef; mask >>= 1 {
		n = c.store.child(n, key.ChildIndex(mask))
	}
	return n
}

// Get returns the first element of the leaf at key.
func (c *core[D]) Get(key Key) (D, error) {
	var zero D
	leaf, ok := c.Leaf(key)
	if !ok {
		return zero, errors.Wrapf(ErrNotFound, "no leaf at key %v", key)
	}
	value, ok := leaf.First()
	if !ok {
		return zero, errors.Wrapf(ErrNotFound, "leaf at key %v holds no data", key)
	}
	return value, nil
}

// Leaf returns the container of the leaf at key.
func (c *core[D]) Leaf(key Key) (Container[D], bool) {
	n := c.findLeaf(key)
	if n == nilRef {
		return nil, false
	}
	return c.store.container(n), true
}

// ExistsLeaf reports whether key addresses a leaf.
func (c *core[D]) ExistsLeaf(key Key) bool {
	return c.findLeaf(key) != nilRef
}

// RemoveLeaf deletes the leaf at key and prunes branches left empty.
func (c *core[D]) RemoveLeaf(key Key) {
	if !key.Fits(c.depth) {
		return
	}
	c.removeRecursive(c.root, c.depthMask, key)
}

// removeRecursive returns true when branch was left without children.
func (c *core[D]) removeRecursive(branch nodeRef, mask uint32, key Key) bool {
	idx := key.ChildIndex(mask)
	child := c.store.child(branch, idx)
	if child == nilRef {
		return false
	}
	switch {
	case mask == 1:
		c.store.setChild(branch, idx, nilRef)
		c.store.release(child)
		c.leafCount--
	case c.removeRecursive(child, mask>>1, key):
		c.store.setChild(branch, idx, nilRef)
		c.store.release(child)
		c.branchCount--
	default:
		return false
	}
	return c.store.occupancy(branch) == 0
}

// DeleteTree drops every node below the root.
func (c *core[D]) DeleteTree() {
	c.store.reset()
	c.root = c.store.newBranch()
	c.leafCount = 0
	c.branchCount = 1
}

// ExpandRoot grows the tree by one level. The current root becomes child childIdx of a new root,
// so every existing key gains the bits of childIdx as its new most significant bit.
func (c *core[D]) ExpandRoot(childIdx uint8) error {
	if c.depth+1 > MaxDepth {
		return errors.Wrapf(ErrOutOfRange, "cannot grow tree beyond depth %d", MaxDepth)
	}
	if childIdx > 7 {
		return errors.Wrapf(ErrInvalidConfiguration, "child index %d", childIdx)
	}
	if c.leafCount > 0 {
		newRoot := c.store.newBranch()
		c.store.setChild(newRoot, childIdx, c.root)
		c.root = newRoot
		c.branchCount++
	}
	c.depth++
	c.depthMask <<= 1
	return nil
}

// Root returns a cursor on the root branch.
func (c *core[D]) Root() Node[D] {
	return Node[D]{store: c.store, ref: c.root}
}

// WalkLeafs visits every leaf in pre-order with its full depth key.
func (c *core[D]) WalkLeafs(fn func(key Key, leaf Container[D]) bool) {
	c.walkRecursive(c.root, Key{}, fn)
}

func (c *core[D]) walkRecursive(branch nodeRef, key Key, fn func(Key, Container[D]) bool) bool {
	for idx := uint8(0); idx < 8; idx++ {
		child := c.store.child(branch, idx)
		if child == nilRef {
			continue
		}
		childKey := key.Child(idx)
		if child.isLeaf() {
			if !fn(childKey, c.store.container(child)) {
				return false
			}
			continue
		}
		if !c.walkRecursive(child, childKey, fn) {
			return false
		}
	}
	return true
}
