package octree

import (
	"github.com/pkg/errors"
)

// DoubleBuffer keeps two trees of equal depth: the current one, which every Tree operation acts
// on, and the previous one, kept for change detection and XOR diff encoding between snapshots.
type DoubleBuffer[D any] struct {
	buffers  [2]*core[D]
	selector int
}

// NewDoubleBuffer creates a DoubleBuffer with two empty buffers of the given depth.
func NewDoubleBuffer[D any](depth uint, newLeaf LeafFactory[D]) (*DoubleBuffer[D], error) {
	tree := &DoubleBuffer[D]{}
	for i := range tree.buffers {
		tree.buffers[i] = &core[D]{}
		if err := tree.buffers[i].init(&slotStore[D]{}, depth, newLeaf); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func (t *DoubleBuffer[D]) current() *core[D] {
	return t.buffers[t.selector]
}

func (t *DoubleBuffer[D]) previous() *core[D] {
	return t.buffers[1-t.selector]
}

// SwitchBuffers makes the current tree the previous one and starts an empty current tree. The
// arenas of the old previous tree are reused.
func (t *DoubleBuffer[D]) SwitchBuffers() {
	t.selector = 1 - t.selector
	t.current().DeleteTree()
}

// PreviousLeafCount returns the number of leaves in the previous tree.
func (t *DoubleBuffer[D]) PreviousLeafCount() int {
	return t.previous().leafCount
}

// DeleteCurrentBuffer empties the current tree only.
func (t *DoubleBuffer[D]) DeleteCurrentBuffer() {
	t.current().DeleteTree()
}

// DeletePreviousBuffer empties the previous tree only.
func (t *DoubleBuffer[D]) DeletePreviousBuffer() {
	t.previous().DeleteTree()
}

// SetTreeDepth sets the depth of both buffers.
func (t *DoubleBuffer[D]) SetTreeDepth(depth uint) error {
	for _, buf := range t.buffers {
		if buf.leafCount > 0 && buf.depth != depth {
			return errors.Wrapf(ErrInvalidState, "cannot change depth of a buffer holding %d leaves", buf.leafCount)
		}
	}
	for _, buf := range t.buffers {
		if err := buf.SetTreeDepth(depth); err != nil {
			return err
		}
	}
	return nil
}

// TreeDepth returns the depth shared by both buffers.
func (t *DoubleBuffer[D]) TreeDepth() uint {
	return t.current().depth
}

// LeafCount returns the number of leaves in the current tree.
func (t *DoubleBuffer[D]) LeafCount() int {
	return t.current().leafCount
}

// BranchCount returns the number of branches in the current tree.
func (t *DoubleBuffer[D]) BranchCount() int {
	return t.current().branchCount
}

// Add inserts into the current tree.
func (t *DoubleBuffer[D]) Add(key Key, value D) {
	t.current().Add(key, value)
}

// Get reads from the current tree.
func (t *DoubleBuffer[D]) Get(key Key) (D, error) {
	return t.current().Get(key)
}

// Leaf reads from the current tree.
func (t *DoubleBuffer[D]) Leaf(key Key) (Container[D], bool) {
	return t.current().Leaf(key)
}

// ExistsLeaf reads from the current tree.
func (t *DoubleBuffer[D]) ExistsLeaf(key Key) bool {
	return t.current().ExistsLeaf(key)
}

// RemoveLeaf removes from the current tree.
func (t *DoubleBuffer[D]) RemoveLeaf(key Key) {
	t.current().RemoveLeaf(key)
}

// DeleteTree empties both buffers.
func (t *DoubleBuffer[D]) DeleteTree() {
	for _, buf := range t.buffers {
		buf.DeleteTree()
	}
}

// ExpandRoot grows both buffers so that their paths stay aligned.
func (t *DoubleBuffer[D]) ExpandRoot(childIdx uint8) error {
	if t.current().depth+1 > MaxDepth {
		return errors.Wrapf(ErrOutOfRange, "cannot grow tree beyond depth %d", MaxDepth)
	}
	for _, buf := range t.buffers {
		if err := buf.ExpandRoot(childIdx); err != nil {
			return err
		}
	}
	return nil
}

// Root returns a cursor on the root of the current tree.
func (t *DoubleBuffer[D]) Root() Node[D] {
	return t.current().Root()
}

// WalkLeafs walks the current tree.
func (t *DoubleBuffer[D]) WalkLeafs(fn func(key Key, leaf Container[D]) bool) {
	t.current().WalkLeafs(fn)
}

// SerializeTree serializes the current tree.
func (t *DoubleBuffer[D]) SerializeTree() []byte {
	return t.current().SerializeTree()
}

// SerializeTreeWithData serializes the current tree with its data.
func (t *DoubleBuffer[D]) SerializeTreeWithData() ([]byte, []D) {
	return t.current().SerializeTreeWithData()
}

// SerializeLeafs returns the data of the current tree.
func (t *DoubleBuffer[D]) SerializeLeafs() []D {
	return t.current().SerializeLeafs()
}

// DeserializeTree rebuilds the current tree.
func (t *DoubleBuffer[D]) DeserializeTree(stream []byte, data []D) error {
	return t.current().DeserializeTree(stream, data)
}

// DeserializeTreeFunc rebuilds the current tree.
func (t *DoubleBuffer[D]) DeserializeTreeFunc(stream []byte, gen func(Key) D) error {
	return t.current().DeserializeTreeFunc(stream, gen)
}

func (t *DoubleBuffer[D]) checkAligned() error {
	if cur, prev := t.current(), t.previous(); cur.depth != prev.depth {
		return errors.Wrapf(ErrInvalidState, "buffer depths differ (%d and %d)", cur.depth, prev.depth)
	}
	return nil
}

// SerializeTreeXOR encodes the current tree as a diff against the previous one, with the data of
// every current leaf in pre-order.
func (t *DoubleBuffer[D]) SerializeTreeXOR() ([]byte, []D, error) {
	if err := t.checkAligned(); err != nil {
		return nil, nil, err
	}
	cur, prev := t.current(), t.previous()
	w := &treeWriter[D]{
		ref:      prev,
		stream:   make([]byte, 0, cur.branchCount),
		data:     make([]D, 0, cur.leafCount),
		withData: true,
	}
	cur.serializeRecursive(w, cur.root, prev.root)
	return w.stream, w.data, nil
}

// DeserializeTreeXOR rebuilds the current tree from a diff against the previous one.
func (t *DoubleBuffer[D]) DeserializeTreeXOR(stream []byte, data []D) error {
	if err := t.checkAligned(); err != nil {
		return err
	}
	return t.current().deserialize(&treeReader[D]{ref: t.previous(), stream: stream, data: data})
}

// SerializeNewLeafs returns the data of current leaves that do not exist in the previous tree and
// hold at least minElements values.
func (t *DoubleBuffer[D]) SerializeNewLeafs(minElements int) ([]D, error) {
	if err := t.checkAligned(); err != nil {
		return nil, err
	}
	cur, prev := t.current(), t.previous()
	w := &treeWriter[D]{
		ref:         prev,
		withData:    true,
		newOnly:     true,
		minElements: minElements,
	}
	cur.serializeRecursive(w, cur.root, prev.root)
	return w.data, nil
}
