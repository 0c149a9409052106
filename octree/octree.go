// Package octree implements an arena backed octree over integer voxel keys. Trees map a voxel key to
// a leaf container of user data and can be serialized into a compact pre-order occupancy stream.
// Three storage strategies share the same contract: SingleBuffer, LowMemory and DoubleBuffer.
package octree

// MaxDepth is the deepest tree supported. Keys hold at most MaxDepth significant bits per axis.
const MaxDepth = 21

// Each node in the octree is either a branch node, which links to up to eight children, or a leaf
// node holding a container of data. Empty branches and empty leaves are never retained.
const (
	BranchNode = NodeType(iota)
	LeafNode
)

// NodeType represents the possible types of nodes in an octree.
type NodeType uint8

// Tree is an octree whose leaves hold containers of D. Keys passed to a tree must fit in
// TreeDepth bits per axis. A Tree is not safe for concurrent mutation.
type Tree[D any] interface {
	// SetTreeDepth configures the number of levels below the root. It fails once leaves exist.
	SetTreeDepth(depth uint) error
	TreeDepth() uint
	LeafCount() int
	BranchCount() int

	// Add inserts value into the leaf addressed by key, creating missing nodes on the way. Keys
	// with a coordinate of 2^TreeDepth or more are ignored.
	Add(key Key, value D)
	// Get returns the first element of the leaf addressed by key.
	Get(key Key) (D, error)
	Leaf(key Key) (Container[D], bool)
	ExistsLeaf(key Key) bool
	// RemoveLeaf deletes a leaf and every branch left without children. Absent keys are ignored.
	RemoveLeaf(key Key)
	// DeleteTree drops every node below the root. The depth is kept.
	DeleteTree()
	// ExpandRoot adds a level above the root, placing the old root at childIdx of the new one.
	ExpandRoot(childIdx uint8) error

	Root() Node[D]
	// WalkLeafs visits leaves in pre-order until fn returns false.
	WalkLeafs(fn func(key Key, leaf Container[D]) bool)

	Marshaler[D]
	Unmarshaler[D]
}

// Marshaler will convert an octree into a pre-order occupancy stream, optionally with leaf data.
type Marshaler[D any] interface {
	SerializeTree() []byte
	SerializeTreeWithData() ([]byte, []D)
	SerializeLeafs() []D
}

// Unmarshaler rebuilds an octree from an occupancy stream.
type Unmarshaler[D any] interface {
	DeserializeTree(stream []byte, data []D) error
	DeserializeTreeFunc(stream []byte, gen func(Key) D) error
}

// Node is a read only cursor into a tree. It is invalidated by DeleteTree and by deserialization.
type Node[D any] struct {
	store nodeStore[D]
	ref   nodeRef
}

// Type returns whether the node is a branch or a leaf.
func (n Node[D]) Type() NodeType {
	if n.ref.isLeaf() {
		return LeafNode
	}
	return BranchNode
}

// IsLeaf returns true for leaf nodes.
func (n Node[D]) IsLeaf() bool {
	return n.ref.isLeaf()
}

// Child returns the child at idx (0-7) of a branch.
func (n Node[D]) Child(idx uint8) (Node[D], bool) {
	if n.ref.isLeaf() || n.ref == nilRef {
		return Node[D]{}, false
	}
	child := n.store.child(n.ref, idx)
	if child == nilRef {
		return Node[D]{}, false
	}
	return Node[D]{store: n.store, ref: child}, true
}

// Occupancy returns a bit mask with bit i set when child i exists. Leaves report 0.
func (n Node[D]) Occupancy() uint8 {
	if n.ref.isLeaf() || n.ref == nilRef {
		return 0
	}
	return n.store.occupancy(n.ref)
}

// Container returns the data container of a leaf, or nil for a branch.
func (n Node[D]) Container() Container[D] {
	if !n.ref.isLeaf() {
		return nil
	}
	return n.store.container(n.ref)
}

var (
	_ Tree[int] = (*SingleBuffer[int])(nil)
	_ Tree[int] = (*LowMemory[int])(nil)
	_ Tree[int] = (*DoubleBuffer[int])(nil)
)
