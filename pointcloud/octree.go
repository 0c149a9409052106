package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/octree/logging"
	"go.viam.com/octree/octree"
)

// Octree indexes the points of a PointCloud by voxel. Leaves hold point indices into the input
// cloud. An Octree is not safe for concurrent use, except for concurrent read only queries.
type Octree struct {
	logger logging.Logger
	tree   octree.Tree[int]
	// double is set when the tree keeps a previous buffer for change detection.
	double *octree.DoubleBuffer[int]

	cloud   PointCloud
	indices []int

	resolution float64
	min, max   r3.Vector
	boxDefined bool
}

// NewOctree creates an empty octree from a validated config.
func NewOctree(conf *OctreeConfig, logger logging.Logger) (*Octree, error) {
	if logger == nil {
		logger = logging.Global().Sublogger("octree")
	}
	if err := conf.Validate("octree"); err != nil {
		return nil, err
	}

	newLeaf := octree.LeafFactory[int](octree.NewVectorLeaf[int])
	if conf.Leaf == LeafCounter {
		newLeaf = octree.NewCounterLeaf[int]
	}

	o := &Octree{logger: logger, resolution: conf.Resolution}
	var err error
	switch conf.Strategy {
	case StrategyLowMemory:
		o.tree, err = octree.NewLowMemory(1, newLeaf)
	case StrategyDoubleBuffer:
		o.double, err = octree.NewDoubleBuffer(1, newLeaf)
		o.tree = o.double
	default:
		o.tree, err = octree.NewSingleBuffer(1, newLeaf)
	}
	if err != nil {
		return nil, err
	}

	if box := conf.BoundingBox; box != nil {
		if err := o.DefineBoundingBox(box.Min, box.Max); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// SetInputCloud binds the cloud to index. A nil indices slice selects every point. Neither is
// copied.
func (o *Octree) SetInputCloud(cloud PointCloud, indices []int) {
	o.cloud = cloud
	o.indices = indices
}

// InputCloud returns the bound cloud.
func (o *Octree) InputCloud() PointCloud {
	return o.cloud
}

// Resolution returns the side length of the deepest voxels.
func (o *Octree) Resolution() float64 {
	return o.resolution
}

// TreeDepth returns the depth of the tree.
func (o *Octree) TreeDepth() uint {
	return o.tree.TreeDepth()
}

// LeafCount returns the number of occupied voxels.
func (o *Octree) LeafCount() int {
	return o.tree.LeafCount()
}

// BranchCount returns the number of branches, root included.
func (o *Octree) BranchCount() int {
	return o.tree.BranchCount()
}

// AddPointsFromInputCloud inserts every selected point of the input cloud. Non-finite points are
// skipped.
func (o *Octree) AddPointsFromInputCloud() error {
	if o.cloud == nil {
		return errors.Wrap(octree.ErrInvalidState, "no input cloud set")
	}

	indices := o.indices
	if indices == nil {
		indices = lo.Range(o.cloud.Size())
	}

	skipped := 0
	for _, idx := range indices {
		if err := o.checkIndex(idx); err != nil {
			return err
		}
		added, err := o.addPointIdx(idx)
		if err != nil {
			return err
		}
		if !added {
			skipped++
		}
	}

	if skipped > 0 {
		o.logger.Debugw("skipped non-finite points", "count", skipped)
	}
	return nil
}

// AddPointFromCloud inserts the input cloud point at idx.
func (o *Octree) AddPointFromCloud(idx int) error {
	if err := o.checkIndex(idx); err != nil {
		return err
	}
	added, err := o.addPointIdx(idx)
	if err != nil {
		return err
	}
	if !added {
		return errors.Wrapf(octree.ErrInvalidConfiguration, "point %d is not finite", idx)
	}
	return nil
}

// AddPointToCloud appends p to the input cloud, which must be appendable, and inserts it.
func (o *Octree) AddPointToCloud(p r3.Vector) (int, error) {
	if o.cloud == nil {
		return 0, errors.Wrap(octree.ErrInvalidState, "no input cloud set")
	}
	cloud, ok := o.cloud.(AppendablePointCloud)
	if !ok {
		return 0, errors.Wrapf(octree.ErrInvalidState, "input cloud of type %T cannot be appended to", o.cloud)
	}
	if !IsFinite(p) {
		return 0, errors.Wrapf(octree.ErrInvalidConfiguration, "point %v is not finite", p)
	}
	idx := cloud.Append(p)
	if o.indices != nil {
		o.indices = append(o.indices, idx)
	}
	if _, err := o.addPointIdx(idx); err != nil {
		return idx, err
	}
	return idx, nil
}

func (o *Octree) checkIndex(idx int) error {
	if o.cloud == nil {
		return errors.Wrap(octree.ErrInvalidState, "no input cloud set")
	}
	if idx < 0 || idx >= o.cloud.Size() {
		return errors.Wrapf(octree.ErrOutOfRange, "index %d outside cloud of %d points", idx, o.cloud.Size())
	}
	return nil
}

// addPointIdx returns false when the point was skipped as non-finite.
func (o *Octree) addPointIdx(idx int) (bool, error) {
	p := o.cloud.At(idx)
	if !IsFinite(p) {
		return false, nil
	}
	if err := o.adoptBoundingBoxToPoint(p); err != nil {
		return false, err
	}
	key, ok := o.keyForPoint(p)
	if !ok {
		return false, errors.Wrapf(octree.ErrOutOfRange, "point %v lies outside the bounding box %v-%v", p, o.min, o.max)
	}
	o.tree.Add(key, idx)
	return true, nil
}

// IsVoxelOccupiedAtPoint reports whether the voxel containing p holds points.
func (o *Octree) IsVoxelOccupiedAtPoint(p r3.Vector) bool {
	key, ok := o.keyForPoint(p)
	return ok && o.tree.ExistsLeaf(key)
}

// IsVoxelOccupiedAtIndex reports whether the voxel containing input point idx holds points.
func (o *Octree) IsVoxelOccupiedAtIndex(idx int) bool {
	if o.checkIndex(idx) != nil {
		return false
	}
	return o.IsVoxelOccupiedAtPoint(o.cloud.At(idx))
}

// DeleteVoxelAtPoint removes the voxel containing p. Absent voxels are ignored.
func (o *Octree) DeleteVoxelAtPoint(p r3.Vector) {
	if key, ok := o.keyForPoint(p); ok {
		o.tree.RemoveLeaf(key)
	}
}

// DeleteVoxelAtIndex removes the voxel containing input point idx.
func (o *Octree) DeleteVoxelAtIndex(idx int) {
	if o.checkIndex(idx) != nil {
		return
	}
	o.DeleteVoxelAtPoint(o.cloud.At(idx))
}

// DeleteTree drops every voxel. The bounding box and depth are kept.
func (o *Octree) DeleteTree() {
	o.tree.DeleteTree()
}

// OccupiedVoxelCenters returns the center of every occupied voxel in pre-order.
func (o *Octree) OccupiedVoxelCenters() []r3.Vector {
	centers := make([]r3.Vector, 0, o.tree.LeafCount())
	o.tree.WalkLeafs(func(key octree.Key, _ octree.Container[int]) bool {
		centers = append(centers, o.leafCenter(key))
		return true
	})
	return centers
}

// VoxelDensityAtPoint returns the number of points in the voxel containing p.
func (o *Octree) VoxelDensityAtPoint(p r3.Vector) int {
	key, ok := o.keyForPoint(p)
	if !ok {
		return 0
	}
	leaf, ok := o.tree.Leaf(key)
	if !ok {
		return 0
	}
	return leaf.Size()
}

func (o *Octree) centroid(leaf octree.Container[int]) (r3.Vector, bool) {
	data := leaf.Data()
	if len(data) == 0 {
		return r3.Vector{}, false
	}
	var sum r3.Vector
	for _, idx := range data {
		sum = sum.Add(o.cloud.At(idx))
	}
	return sum.Mul(1 / float64(len(data))), true
}

// VoxelCentroids returns the mean of the points of every occupied voxel in pre-order.
func (o *Octree) VoxelCentroids() []r3.Vector {
	centroids := make([]r3.Vector, 0, o.tree.LeafCount())
	o.tree.WalkLeafs(func(_ octree.Key, leaf octree.Container[int]) bool {
		if c, ok := o.centroid(leaf); ok {
			centroids = append(centroids, c)
		}
		return true
	})
	return centroids
}

// VoxelCentroidAtPoint returns the mean of the points in the voxel containing p.
func (o *Octree) VoxelCentroidAtPoint(p r3.Vector) (r3.Vector, error) {
	key, ok := o.keyForPoint(p)
	if !ok {
		return r3.Vector{}, errors.Wrapf(octree.ErrNotFound, "point %v is outside the octree", p)
	}
	leaf, ok := o.tree.Leaf(key)
	if !ok {
		return r3.Vector{}, errors.Wrapf(octree.ErrNotFound, "no voxel at %v", p)
	}
	c, ok := o.centroid(leaf)
	if !ok {
		return r3.Vector{}, errors.Wrapf(octree.ErrNotFound, "voxel at %v holds no point indices", p)
	}
	return c, nil
}

// SerializeTree returns the occupancy stream and the point indices of every voxel in pre-order.
func (o *Octree) SerializeTree() ([]byte, []int) {
	return o.tree.SerializeTreeWithData()
}

// DeserializeTree rebuilds the voxels from a stream produced with the same bounding box. Each
// voxel receives the next element of indices.
func (o *Octree) DeserializeTree(stream []byte, indices []int) error {
	if !o.boxDefined {
		return errors.Wrap(octree.ErrInvalidState, "bounding box must be defined before deserializing")
	}
	return o.tree.DeserializeTree(stream, indices)
}

// DeserializeVoxelCenters rebuilds the voxels from a stream and binds a new input cloud holding one
// point per voxel, its center. The new cloud is returned.
func (o *Octree) DeserializeVoxelCenters(stream []byte) (*BasicPointCloud, error) {
	if !o.boxDefined {
		return nil, errors.Wrap(octree.ErrInvalidState, "bounding box must be defined before deserializing")
	}
	centers := New()
	if err := o.tree.DeserializeTreeFunc(stream, func(key octree.Key) int {
		return centers.Append(o.leafCenter(key))
	}); err != nil {
		return nil, err
	}
	o.SetInputCloud(centers, nil)
	return centers, nil
}

// SwitchBuffers starts a new snapshot on a double buffered octree. The current voxels become the
// reference for PointIndicesFromNewVoxels.
func (o *Octree) SwitchBuffers() error {
	if o.double == nil {
		return errors.Wrap(octree.ErrInvalidState, "octree is not double buffered")
	}
	o.double.SwitchBuffers()
	o.logger.Debugw("switched octree buffers", "previous_leaves", o.double.PreviousLeafCount())
	return nil
}

// PointIndicesFromNewVoxels returns the indices held by voxels that are occupied now but were not
// before the last SwitchBuffers, skipping voxels with fewer than minPoints points.
func (o *Octree) PointIndicesFromNewVoxels(minPoints int) ([]int, error) {
	if o.double == nil {
		return nil, errors.Wrap(octree.ErrInvalidState, "octree is not double buffered")
	}
	return o.double.SerializeNewLeafs(minPoints)
}
