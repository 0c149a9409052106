package octree

// SingleBuffer is an octree whose branches keep a fixed array of eight child slots. It trades
// memory for the cheapest child access.
type SingleBuffer[D any] struct {
	core[D]
}

// NewSingleBuffer creates an empty SingleBuffer tree with the given depth.
func NewSingleBuffer[D any](depth uint, newLeaf LeafFactory[D]) (*SingleBuffer[D], error) {
	tree := &SingleBuffer[D]{}
	if err := tree.init(&slotStore[D]{}, depth, newLeaf); err != nil {
		return nil, err
	}
	return tree, nil
}

// slotStore holds every branch as eight direct child slots.
type slotStore[D any] struct {
	leafArena[D]
	branches arena[[8]nodeRef]
}

func (s *slotStore[D]) newBranch() nodeRef {
	return branchRef(s.branches.alloc([8]nodeRef{}))
}

func (s *slotStore[D]) child(branch nodeRef, idx uint8) nodeRef {
	return s.branches.at(branch.index())[idx]
}

func (s *slotStore[D]) setChild(branch nodeRef, idx uint8, child nodeRef) {
	s.branches.at(branch.index())[idx] = child
}

func (s *slotStore[D]) occupancy(branch nodeRef) uint8 {
	var occ uint8
	for idx, child := range s.branches.at(branch.index()) {
		if child != nilRef {
			occ |= 1 << idx
		}
	}
	return occ
}

func (s *slotStore[D]) release(n nodeRef) {
	if n.isLeaf() {
		s.leaves.release(n.index())
		return
	}
	s.branches.release(n.index())
}

func (s *slotStore[D]) reset() {
	s.leaves.reset()
	s.branches.reset()
}
