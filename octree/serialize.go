package octree

import (
	"github.com/pkg/errors"
)

// The occupancy stream holds one byte per branch in pre-order, children visited 0 to 7. Bit i of
// a byte is set when child i exists. Leaf data, when emitted, follows the same pre-order.
//
// When a reference tree is given, each byte is XORed with the occupancy of the branch at the same
// path in the reference tree (0 when the reference has no branch there).

type treeWriter[D any] struct {
	ref      *core[D]
	stream   []byte
	data     []D
	withData bool
	// newOnly restricts emitted data to leaves missing from ref holding at least minElements.
	newOnly     bool
	minElements int
}

type treeReader[D any] struct {
	ref     *core[D]
	stream  []byte
	pos     int
	data    []D
	dataPos int
	gen     func(Key) D
}

func (r *treeReader[D]) next() (byte, error) {
	if r.pos >= len(r.stream) {
		return 0, errors.Wrapf(ErrCorruptStream, "stream ended after %d bytes", len(r.stream))
	}
	b := r.stream[r.pos]
	r.pos++
	return b, nil
}

// SerializeTree returns the occupancy stream of the tree.
func (c *core[D]) SerializeTree() []byte {
	w := &treeWriter[D]{stream: make([]byte, 0, c.branchCount)}
	c.serializeRecursive(w, c.root, nilRef)
	return w.stream
}

// SerializeTreeWithData returns the occupancy stream and every leaf's data in pre-order.
func (c *core[D]) SerializeTreeWithData() ([]byte, []D) {
	w := &treeWriter[D]{
		stream:   make([]byte, 0, c.branchCount),
		data:     make([]D, 0, c.leafCount),
		withData: true,
	}
	c.serializeRecursive(w, c.root, nilRef)
	return w.stream, w.data
}

// SerializeLeafs returns every leaf's data in pre-order.
func (c *core[D]) SerializeLeafs() []D {
	data := make([]D, 0, c.leafCount)
	c.WalkLeafs(func(_ Key, leaf Container[D]) bool {
		data = append(data, leaf.Data()...)
		return true
	})
	return data
}

func (c *core[D]) serializeRecursive(w *treeWriter[D], branch, refBranch nodeRef) {
	occ := c.store.occupancy(branch)
	if refBranch != nilRef {
		occ ^= w.ref.store.occupancy(refBranch)
	}
	w.stream = append(w.stream, occ)

	for idx := uint8(0); idx < 8; idx++ {
		child := c.store.child(branch, idx)
		if child == nilRef {
			continue
		}
		refChild := nilRef
		if refBranch != nilRef {
			refChild = w.ref.store.child(refBranch, idx)
		}
		if child.isLeaf() {
			if !w.withData {
				continue
			}
			leaf := c.store.container(child)
			if w.newOnly && (refChild != nilRef || leaf.Size() < w.minElements) {
				continue
			}
			w.data = append(w.data, leaf.Data()...)
			continue
		}
		if refChild.isLeaf() {
			refChild = nilRef
		}
		c.serializeRecursive(w, child, refChild)
	}
}

// DeserializeTree replaces the tree with the one described by stream. When data is not nil each
// leaf receives the next element of data.
func (c *core[D]) DeserializeTree(stream []byte, data []D) error {
	return c.deserialize(&treeReader[D]{stream: stream, data: data})
}

// DeserializeTreeFunc replaces the tree with the one described by stream, filling each leaf with
// gen applied to the leaf key.
func (c *core[D]) DeserializeTreeFunc(stream []byte, gen func(Key) D) error {
	return c.deserialize(&treeReader[D]{stream: stream, gen: gen})
}

func (c *core[D]) deserialize(r *treeReader[D]) error {
	c.DeleteTree()
	refRoot := nilRef
	if r.ref != nil {
		refRoot = r.ref.root
	}
	if err := c.deserializeRecursive(r, c.root, refRoot, c.depthMask, Key{}); err != nil {
		c.DeleteTree()
		return err
	}
	if r.pos != len(r.stream) {
		c.DeleteTree()
		return errors.Wrapf(ErrCorruptStream, "%d trailing bytes", len(r.stream)-r.pos)
	}
	return nil
}

func (c *core[D]) deserializeRecursive(r *treeReader[D], branch, refBranch nodeRef, mask uint32, key Key) error {
	occ, err := r.next()
	if err != nil {
		return err
	}
	if refBranch != nilRef {
		occ ^= r.ref.store.occupancy(refBranch)
	}
	if occ == 0 && branch != c.root {
		return errors.Wrapf(ErrCorruptStream, "empty branch at byte %d", r.pos-1)
	}

	for idx := uint8(0); idx < 8; idx++ {
		if occ&(1<<idx) == 0 {
			continue
		}
		childKey := key.Child(idx)
		if mask == 1 {
			leaf := c.newLeaf()
			switch {
			case r.gen != nil:
				leaf.Add(r.gen(childKey))
			case r.data != nil:
				if r.dataPos >= len(r.data) {
					return errors.Wrapf(ErrCorruptStream, "data ran out after %d leaves", r.dataPos)
				}
				leaf.Add(r.data[r.dataPos])
				r.dataPos++
			}
			c.store.setChild(branch, idx, c.store.newLeaf(leaf))
			c.leafCount++
			continue
		}

		child := c.store.newBranch()
		c.store.setChild(branch, idx, child)
		c.branchCount++
		refChild := nilRef
		if refBranch != nilRef {
			refChild = r.ref.store.child(refBranch, idx)
		}
		if err := c.deserializeRecursive(r, child, refChild, mask>>1, childKey); err != nil {
			return err
		}
	}
	return nil
}
