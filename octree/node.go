package octree

// nodeRef is a handle into a store's arenas. The zero value is "no node", the top bit tags leaves
// and the remaining bits hold the arena index plus one.
type nodeRef uint32

const (
	nilRef  nodeRef = 0
	leafTag nodeRef = 1 << 31
)

func branchRef(idx int) nodeRef {
	return nodeRef(idx + 1)
}

func leafRef(idx int) nodeRef {
	return nodeRef(idx+1) | leafTag
}

func (r nodeRef) isLeaf() bool {
	return r&leafTag != 0
}

func (r nodeRef) index() int {
	return int(r&^leafTag) - 1
}

// arena is a slice backed allocator with a free list.
type arena[T any] struct {
	items []T
	free  []int
}

func (a *arena[T]) alloc(v T) int {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.items[idx] = v
		return idx
	}
	a.items = append(a.items, v)
	return len(a.items) - 1
}

func (a *arena[T]) at(idx int) *T {
	return &a.items[idx]
}

func (a *arena[T]) release(idx int) {
	var zero T
	a.items[idx] = zero
	a.free = append(a.free, idx)
}

// reset drops every item but keeps the backing arrays for reuse.
func (a *arena[T]) reset() {
	clear(a.items)
	a.items = a.items[:0]
	a.free = a.free[:0]
}

func (a *arena[T]) live() int {
	return len(a.items) - len(a.free)
}

// nodeStore is the storage strategy behind a tree. Branch layout differs per strategy, leaves are
// always kept in a leafArena.
type nodeStore[D any] interface {
	newBranch() nodeRef
	newLeaf(c Container[D]) nodeRef
	child(branch nodeRef, idx uint8) nodeRef
	// setChild stores child at idx. Passing nilRef clears the slot.
	setChild(branch nodeRef, idx uint8, child nodeRef)
	occupancy(branch nodeRef) uint8
	container(leaf nodeRef) Container[D]
	// release frees a single node. Its children must already be released.
	release(n nodeRef)
	reset()
}

type leafArena[D any] struct {
	leaves arena[Container[D]]
}

func (s *leafArena[D]) newLeaf(c Container[D]) nodeRef {
	return leafRef(s.leaves.alloc(c))
}

func (s *leafArena[D]) container(leaf nodeRef) Container[D] {
	return *s.leaves.at(leaf.index())
}
