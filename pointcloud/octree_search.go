package pointcloud

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/octree/octree"
	"go.viam.com/octree/utils"
)

// searchSlack widens pruning bounds so that rounding in voxel centers never drops a voxel that
// holds a match.
const searchSlack = 1e-9

// prioritizedPoint is a search candidate: a point index and its squared distance to the query.
type prioritizedPoint struct {
	index int
	dist  float64
}

// prioritizedChild is a child voxel ordered by the squared distance from its center to the query.
type prioritizedChild struct {
	node octree.Node[int]
	key  octree.Key
	dist float64
}

func (o *Octree) checkSearchable(op string) error {
	if o.tree.LeafCount() == 0 {
		return errors.Wrapf(octree.ErrOutOfRange, "%s on an empty octree", op)
	}
	return nil
}

// VoxelSearch returns the indices of the points sharing the voxel of p.
func (o *Octree) VoxelSearch(p r3.Vector) ([]int, error) {
	key, ok := o.keyForPoint(p)
	if !ok {
		return nil, errors.Wrapf(octree.ErrNotFound, "point %v is outside the octree", p)
	}
	leaf, ok := o.tree.Leaf(key)
	if !ok {
		return nil, errors.Wrapf(octree.ErrNotFound, "no voxel at %v", p)
	}
	return append([]int(nil), leaf.Data()...), nil
}

// NearestKSearch returns the k input points closest to q, nearest first, with their squared
// distances. Fewer are returned when the octree holds fewer points.
func (o *Octree) NearestKSearch(q r3.Vector, k int) ([]int, []float64, error) {
	if err := o.checkSearchable("nearest k search"); err != nil {
		return nil, nil, err
	}
	if k <= 0 {
		return []int{}, []float64{}, nil
	}

	candidates := make([]prioritizedPoint, 0, k)
	o.nearestKSearchRecursive(q, k, o.tree.Root(), octree.Key{}, 0, math.MaxFloat64, &candidates)

	indices := make([]int, len(candidates))
	dists := make([]float64, len(candidates))
	for i, c := range candidates {
		indices[i] = c.index
		dists[i] = c.dist
	}
	return indices, dists, nil
}

// NearestKSearchAtIndex runs NearestKSearch around input point idx.
func (o *Octree) NearestKSearchAtIndex(idx, k int) ([]int, []float64, error) {
	if err := o.checkIndex(idx); err != nil {
		return nil, nil, err
	}
	return o.NearestKSearch(o.cloud.At(idx), k)
}

// nearestKSearchRecursive visits the children of branch closest first and returns the updated
// squared distance of the k-th candidate, or the incoming bound while fewer than k are known.
func (o *Octree) nearestKSearchRecursive(
	q r3.Vector,
	k int,
	branch octree.Node[int],
	key octree.Key,
	level uint,
	minDist float64,
	candidates *[]prioritizedPoint,
) float64 {
	children := make([]prioritizedChild, 0, 8)
	for idx := uint8(0); idx < 8; idx++ {
		child, ok := branch.Child(idx)
		if !ok {
			continue
		}
		childKey := key.Child(idx)
		children = append(children, prioritizedChild{
			node: child,
			key:  childKey,
			dist: squaredDistance(o.voxelCenter(childKey, level+1), q),
		})
	}
	sort.Slice(children, func(i, j int) bool { return children[i].dist < children[j].dist })

	diameter := o.squaredVoxelDiameter(level + 1)
	for _, child := range children {
		if child.dist > minDist+diameter/4+math.Sqrt(minDist*diameter)+searchSlack {
			break
		}
		if !child.node.IsLeaf() {
			minDist = o.nearestKSearchRecursive(q, k, child.node, child.key, level+1, minDist, candidates)
			continue
		}

		for _, idx := range child.node.Container().Data() {
			if dist := squaredDistance(o.cloud.At(idx), q); dist < minDist {
				*candidates = append(*candidates, prioritizedPoint{index: idx, dist: dist})
			}
		}
		sort.SliceStable(*candidates, func(i, j int) bool { return (*candidates)[i].dist < (*candidates)[j].dist })
		if len(*candidates) > k {
			*candidates = (*candidates)[:k]
		}
		if len(*candidates) == k {
			minDist = (*candidates)[k-1].dist
		}
	}
	return minDist
}

// ApproxNearestSearch descends once to the voxel whose center is closest to q and returns the
// closest point in it. The result is not guaranteed to be the true nearest neighbor.
func (o *Octree) ApproxNearestSearch(q r3.Vector) (int, float64, error) {
	if err := o.checkSearchable("approximate nearest search"); err != nil {
		return 0, 0, err
	}

	node, key := o.tree.Root(), octree.Key{}
	for level := uint(0); !node.IsLeaf(); level++ {
		best := prioritizedChild{dist: math.Inf(1)}
		for idx := uint8(0); idx < 8; idx++ {
			child, ok := node.Child(idx)
			if !ok {
				continue
			}
			childKey := key.Child(idx)
			if dist := squaredDistance(o.voxelCenter(childKey, level+1), q); dist < best.dist {
				best = prioritizedChild{node: child, key: childKey, dist: dist}
			}
		}
		node, key = best.node, best.key
	}

	best := prioritizedPoint{index: -1, dist: math.Inf(1)}
	for _, idx := range node.Container().Data() {
		if dist := squaredDistance(o.cloud.At(idx), q); dist < best.dist {
			best = prioritizedPoint{index: idx, dist: dist}
		}
	}
	if best.index < 0 {
		return 0, 0, errors.Wrap(octree.ErrNotFound, "closest voxel holds no point indices")
	}
	return best.index, best.dist, nil
}

// RadiusSearch returns the input points within radius of q with their squared distances, in no
// particular order. A positive maxResults stops the search once that many points are found.
func (o *Octree) RadiusSearch(q r3.Vector, radius float64, maxResults int) ([]int, []float64, error) {
	if err := o.checkSearchable("radius search"); err != nil {
		return nil, nil, err
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, nil, errors.Wrapf(octree.ErrInvalidConfiguration, "radius %v", radius)
	}

	var indices []int
	var dists []float64
	o.radiusSearchRecursive(q, radius*radius, o.tree.Root(), octree.Key{}, 0, maxResults, &indices, &dists)
	return indices, dists, nil
}

// radiusSearchRecursive returns true once maxResults points were collected.
func (o *Octree) radiusSearchRecursive(
	q r3.Vector,
	squaredRadius float64,
	branch octree.Node[int],
	key octree.Key,
	level uint,
	maxResults int,
	indices *[]int,
	dists *[]float64,
) bool {
	diameter := o.squaredVoxelDiameter(level + 1)
	bound := diameter/4 + squaredRadius + math.Sqrt(diameter*squaredRadius) + searchSlack

	for idx := uint8(0); idx < 8; idx++ {
		child, ok := branch.Child(idx)
		if !ok {
			continue
		}
		childKey := key.Child(idx)
		if squaredDistance(o.voxelCenter(childKey, level+1), q) > bound {
			continue
		}

		if !child.IsLeaf() {
			if o.radiusSearchRecursive(q, squaredRadius, child, childKey, level+1, maxResults, indices, dists) {
				return true
			}
			continue
		}
		for _, pointIdx := range child.Container().Data() {
			dist := squaredDistance(o.cloud.At(pointIdx), q)
			if dist > squaredRadius {
				continue
			}
			*indices = append(*indices, pointIdx)
			*dists = append(*dists, dist)
			if maxResults > 0 && len(*indices) >= maxResults {
				return true
			}
		}
	}
	return false
}

// BatchNearestKSearch runs NearestKSearch for every query in parallel. No mutation may run
// concurrently.
func (o *Octree) BatchNearestKSearch(ctx context.Context, queries []r3.Vector, k int) ([][]int, [][]float64, error) {
	if err := o.checkSearchable("batch nearest k search"); err != nil {
		return nil, nil, err
	}

	indices := make([][]int, len(queries))
	dists := make([][]float64, len(queries))
	var errMu sync.Mutex
	var errs error
	err := utils.GroupWorkParallel(
		ctx,
		len(queries),
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				idx, dist, err := o.NearestKSearch(queries[workNum], k)
				if err != nil {
					errMu.Lock()
					errs = multierr.Append(errs, err)
					errMu.Unlock()
					return
				}
				indices[workNum] = idx
				dists[workNum] = dist
			}, nil
		},
	)
	if err = multierr.Combine(err, errs); err != nil {
		return nil, nil, err
	}
	return indices, dists, nil
}
