package octree

import (
	"slices"

	popcount "github.com/hideo55/go-popcount"
)

// LowMemory is an octree whose branches store only their occupied children. A child is found by
// counting the occupancy bits below it.
type LowMemory[D any] struct {
	core[D]
}

// NewLowMemory creates an empty LowMemory tree with the given depth.
func NewLowMemory[D any](depth uint, newLeaf LeafFactory[D]) (*LowMemory[D], error) {
	tree := &LowMemory[D]{}
	if err := tree.init(&compactStore[D]{}, depth, newLeaf); err != nil {
		return nil, err
	}
	return tree, nil
}

type compactBranch struct {
	occupancy uint8
	children  []nodeRef
}

// slot returns the position of child idx inside children.
func (b *compactBranch) slot(idx uint8) int {
	return int(popcount.Count(uint64(b.occupancy) & ((1 << idx) - 1)))
}

type compactStore[D any] struct {
	leafArena[D]
	branches arena[compactBranch]
}

func (s *compactStore[D]) newBranch() nodeRef {
	return branchRef(s.branches.alloc(compactBranch{}))
}

func (s *compactStore[D]) child(branch nodeRef, idx uint8) nodeRef {
	b := s.branches.at(branch.index())
	if b.occupancy&(1<<idx) == 0 {
		return nilRef
	}
	return b.children[b.slot(idx)]
}

func (s *compactStore[D]) setChild(branch nodeRef, idx uint8, child nodeRef) {
	b := s.branches.at(branch.index())
	bit := uint8(1) << idx
	slot := b.slot(idx)
	occupied := b.occupancy&bit != 0
	switch {
	case child == nilRef && occupied:
		b.children = slices.Delete(b.children, slot, slot+1)
		b.occupancy &^= bit
	case child == nilRef:
	case occupied:
		b.children[slot] = child
	default:
		b.children = slices.Insert(b.children, slot, child)
		b.occupancy |= bit
	}
}

func (s *compactStore[D]) occupancy(branch nodeRef) uint8 {
	return s.branches.at(branch.index()).occupancy
}

func (s *compactStore[D]) release(n nodeRef) {
	if n.isLeaf() {
		s.leaves.release(n.index())
		return
	}
	s.branches.release(n.index())
}

func (s *compactStore[D]) reset() {
	s.leaves.reset()
	s.branches.reset()
}
