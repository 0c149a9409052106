package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/octree/logging"
	"go.viam.com/octree/octree"
)

var allStrategies = []string{StrategySingleBuffer, StrategyLowMemory, StrategyDoubleBuffer}

func newTestOctree(t *testing.T, strategy string, resolution float64) *Octree {
	t.Helper()
	oct, err := NewOctree(&OctreeConfig{Resolution: resolution, Strategy: strategy}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return oct
}

func forEachOctree(t *testing.T, resolution float64, fn func(t *testing.T, oct *Octree)) {
	t.Helper()
	for _, strategy := range allStrategies {
		t.Run(strategy, func(t *testing.T) {
			fn(t, newTestOctree(t, strategy, resolution))
		})
	}
}

func TestNewOctree(t *testing.T) {
	_, err := NewOctree(&OctreeConfig{Resolution: 0}, logging.NewTestLogger(t))
	test.That(t, errors.Is(err, octree.ErrInvalidConfiguration), test.ShouldBeTrue)

	oct, err := NewOctree(&OctreeConfig{Resolution: 0.1}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, oct.Resolution(), test.ShouldEqual, 0.1)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, 1)
	test.That(t, oct.LeafCount(), test.ShouldEqual, 0)
	test.That(t, oct.BranchCount(), test.ShouldEqual, 1)
	test.That(t, oct.InputCloud(), test.ShouldBeNil)

	err = oct.AddPointsFromInputCloud()
	test.That(t, errors.Is(err, octree.ErrInvalidState), test.ShouldBeTrue)

	oct, err = NewOctree(&OctreeConfig{
		Resolution:  1,
		BoundingBox: &BoundingBoxConfig{Min: r3.Vector{}, Max: r3.Vector{X: 10, Y: 10, Z: 10}},
	}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, 4)
	min, max := oct.BoundingBox()
	test.That(t, min, test.ShouldResemble, r3.Vector{X: -3, Y: -3, Z: -3})
	test.That(t, max, test.ShouldResemble, r3.Vector{X: 13, Y: 13, Z: 13})
}

func TestAddPointsFromInputCloud(t *testing.T) {
	forEachOctree(t, 0.5, func(t *testing.T, oct *Octree) {
		cloud := MakeTestPointCloud()
		oct.SetInputCloud(cloud, nil)
		test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)

		test.That(t, oct.LeafCount(), test.ShouldEqual, 3)
		test.That(t, oct.TreeDepth(), test.ShouldEqual, 3)
		min, max := oct.BoundingBox()
		test.That(t, min, test.ShouldResemble, r3.Vector{X: -2.5, Y: -1.5, Z: -3.5})
		test.That(t, max, test.ShouldResemble, r3.Vector{X: 1.5, Y: 2.5, Z: 0.5})

		for i := 0; i < cloud.Size(); i++ {
			test.That(t, oct.IsVoxelOccupiedAtIndex(i), test.ShouldBeTrue)
			test.That(t, oct.VoxelDensityAtPoint(cloud.At(i)), test.ShouldEqual, 1)
			indices, err := oct.VoxelSearch(cloud.At(i))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, indices, test.ShouldResemble, []int{i})
		}
		test.That(t, oct.IsVoxelOccupiedAtIndex(3), test.ShouldBeFalse)
		test.That(t, oct.IsVoxelOccupiedAtPoint(r3.Vector{X: 1, Y: 1, Z: 0}), test.ShouldBeFalse)
		test.That(t, oct.IsVoxelOccupiedAtPoint(r3.Vector{X: 100}), test.ShouldBeFalse)

		_, err := oct.VoxelSearch(r3.Vector{X: 1, Y: 1, Z: 0})
		test.That(t, errors.Is(err, octree.ErrNotFound), test.ShouldBeTrue)
		_, err = oct.VoxelSearch(r3.Vector{X: 100})
		test.That(t, errors.Is(err, octree.ErrNotFound), test.ShouldBeTrue)
	})
}

func TestAddPointsSubset(t *testing.T) {
	cloud := MakeRandomPointCloud(1, 50, 5)
	oct := newTestOctree(t, StrategySingleBuffer, 0.01)
	subset := lo.Filter(lo.Range(cloud.Size()), func(i, _ int) bool { return i%2 == 0 })
	oct.SetInputCloud(cloud, subset)
	test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)
	test.That(t, oct.LeafCount(), test.ShouldEqual, len(subset))
	for i := 0; i < cloud.Size(); i++ {
		test.That(t, oct.IsVoxelOccupiedAtIndex(i), test.ShouldEqual, i%2 == 0)
	}

	oct.SetInputCloud(cloud, []int{0, 50})
	err := oct.AddPointsFromInputCloud()
	test.That(t, errors.Is(err, octree.ErrOutOfRange), test.ShouldBeTrue)
	err = oct.AddPointFromCloud(-1)
	test.That(t, errors.Is(err, octree.ErrOutOfRange), test.ShouldBeTrue)
}

func TestNonFinitePointsSkipped(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	oct, err := NewOctree(&OctreeConfig{Resolution: 0.5}, logger)
	test.That(t, err, test.ShouldBeNil)

	cloud := NewFromVectors([]r3.Vector{
		{X: 1, Y: 1, Z: 1},
		{X: math.NaN(), Y: 0, Z: 0},
		{X: 2, Y: 2, Z: 2},
		{X: 0, Y: math.Inf(-1), Z: 0},
	})
	meta := cloud.MetaData()
	test.That(t, meta.Count(), test.ShouldEqual, 2)

	oct.SetInputCloud(cloud, nil)
	test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)
	test.That(t, oct.LeafCount(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("skipped non-finite points").Len(), test.ShouldEqual, 1)

	err = oct.AddPointFromCloud(1)
	test.That(t, errors.Is(err, octree.ErrInvalidConfiguration), test.ShouldBeTrue)
	_, err = oct.AddPointToCloud(r3.Vector{X: math.NaN()})
	test.That(t, errors.Is(err, octree.ErrInvalidConfiguration), test.ShouldBeTrue)
	test.That(t, oct.IsVoxelOccupiedAtIndex(1), test.ShouldBeFalse)
}

func TestGrowthPreservesContent(t *testing.T) {
	for _, far := range []r3.Vector{
		{X: 40, Y: -25, Z: 13},
		{X: -40, Y: -40, Z: -40},
		{X: 100, Y: 100, Z: 100},
	} {
		forEachOctree(t, 0.25, func(t *testing.T, oct *Octree) {
			cloud := MakeRandomPointCloud(2, 100, 3)
			oct.SetInputCloud(cloud, nil)
			test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)

			before := oct.OccupiedVoxelCenters()
			depth := oct.TreeDepth()

			idx, err := oct.AddPointToCloud(far)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, idx, test.ShouldEqual, 100)
			test.That(t, oct.TreeDepth(), test.ShouldBeGreaterThan, depth)
			test.That(t, oct.LeafCount(), test.ShouldEqual, len(before)+1)
			test.That(t, oct.IsVoxelOccupiedAtPoint(far), test.ShouldBeTrue)

			for _, center := range before {
				test.That(t, oct.IsVoxelOccupiedAtPoint(center), test.ShouldBeTrue)
			}
			for i := 0; i < cloud.Size(); i++ {
				indices, err := oct.VoxelSearch(cloud.At(i))
				test.That(t, err, test.ShouldBeNil)
				test.That(t, indices, test.ShouldContain, i)
			}
		})
	}
}

func TestGrowthClampedAtMaxDepth(t *testing.T) {
	oct := newTestOctree(t, StrategySingleBuffer, 1)
	cloud := NewFromVectors([]r3.Vector{{}})
	oct.SetInputCloud(cloud, nil)
	test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)

	_, err := oct.AddPointToCloud(r3.Vector{X: 1e12})
	test.That(t, errors.Is(err, octree.ErrOutOfRange), test.ShouldBeTrue)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, octree.MaxDepth)
	test.That(t, oct.IsVoxelOccupiedAtIndex(0), test.ShouldBeTrue)
}

func TestRefitClampedBoxRejectsPoint(t *testing.T) {
	oct := newTestOctree(t, StrategySingleBuffer, 1)
	test.That(t, oct.DefineBoundingBox(r3.Vector{}, r3.Vector{X: 1e7, Y: 1e7, Z: 1e7}), test.ShouldBeNil)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, octree.MaxDepth)
	oct.SetInputCloud(New(), nil)

	p := r3.Vector{X: 1, Y: 1, Z: 1}
	_, err := oct.AddPointToCloud(p)
	test.That(t, errors.Is(err, octree.ErrOutOfRange), test.ShouldBeTrue)
	test.That(t, oct.LeafCount(), test.ShouldEqual, 0)
	test.That(t, oct.IsVoxelOccupiedAtPoint(p), test.ShouldBeFalse)
	test.That(t, oct.OccupiedVoxelCenters(), test.ShouldBeEmpty)
}

func TestDefineBoundingBox(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	oct, err := NewOctree(&OctreeConfig{Resolution: 1}, logger)
	test.That(t, err, test.ShouldBeNil)

	err = oct.DefineBoundingBox(r3.Vector{X: 1}, r3.Vector{})
	test.That(t, errors.Is(err, octree.ErrInvalidConfiguration), test.ShouldBeTrue)
	err = oct.DefineBoundingBox(r3.Vector{X: math.NaN()}, r3.Vector{X: 1})
	test.That(t, errors.Is(err, octree.ErrInvalidConfiguration), test.ShouldBeTrue)

	err = oct.DefineBoundingBox(r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, 1)
	min, max := oct.BoundingBox()
	test.That(t, min, test.ShouldResemble, r3.Vector{X: 0, Y: 1, Z: 2})
	test.That(t, max, test.ShouldResemble, r3.Vector{X: 2, Y: 3, Z: 4})

	err = oct.DefineBoundingBox(r3.Vector{}, r3.Vector{X: 1e9})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, octree.MaxDepth)
	test.That(t, logs.FilterMessageSnippet("clamping").Len(), test.ShouldEqual, 1)

	cloud := MakeTestPointCloud()
	oct.SetInputCloud(cloud, nil)
	test.That(t, oct.DefineBoundingBoxFromCloud(), test.ShouldBeNil)
	min, max = oct.BoundingBox()
	test.That(t, oct.TreeDepth(), test.ShouldEqual, 2)
	test.That(t, min, test.ShouldResemble, r3.Vector{X: -1.5, Y: -1.5, Z: -2})
	test.That(t, max, test.ShouldResemble, r3.Vector{X: 2.5, Y: 2.5, Z: 2})

	test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, 2)
	err = oct.DefineBoundingBox(r3.Vector{}, r3.Vector{X: 1})
	test.That(t, errors.Is(err, octree.ErrInvalidState), test.ShouldBeTrue)

	oct.SetInputCloud(New(), nil)
	err = oct.DefineBoundingBoxFromCloud()
	test.That(t, errors.Is(err, octree.ErrInvalidState), test.ShouldBeTrue)
}

func TestRefitWithoutLeaves(t *testing.T) {
	oct := newTestOctree(t, StrategySingleBuffer, 1)
	test.That(t, oct.DefineBoundingBox(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}), test.ShouldBeNil)

	cloud := NewFromVectors([]r3.Vector{{X: 6, Y: 0.5, Z: 0.5}})
	oct.SetInputCloud(cloud, nil)
	test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, 3)
	min, max := oct.BoundingBox()
	test.That(t, min, test.ShouldResemble, r3.Vector{X: -1.25, Y: -3.5, Z: -3.5})
	test.That(t, max, test.ShouldResemble, r3.Vector{X: 6.75, Y: 4.5, Z: 4.5})
	test.That(t, oct.IsVoxelOccupiedAtIndex(0), test.ShouldBeTrue)
}

func TestDeleteVoxels(t *testing.T) {
	forEachOctree(t, 0.5, func(t *testing.T, oct *Octree) {
		cloud := MakeTestPointCloud()
		oct.SetInputCloud(cloud, nil)
		test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)
		branches := oct.BranchCount()

		oct.DeleteVoxelAtIndex(1)
		test.That(t, oct.LeafCount(), test.ShouldEqual, 2)
		test.That(t, oct.IsVoxelOccupiedAtIndex(1), test.ShouldBeFalse)
		test.That(t, oct.BranchCount(), test.ShouldBeLessThan, branches)

		oct.DeleteVoxelAtIndex(1)
		oct.DeleteVoxelAtIndex(17)
		oct.DeleteVoxelAtPoint(r3.Vector{X: 1e6})
		test.That(t, oct.LeafCount(), test.ShouldEqual, 2)

		oct.DeleteVoxelAtPoint(cloud.At(0))
		test.That(t, oct.LeafCount(), test.ShouldEqual, 1)

		depth := oct.TreeDepth()
		oct.DeleteTree()
		test.That(t, oct.LeafCount(), test.ShouldEqual, 0)
		test.That(t, oct.BranchCount(), test.ShouldEqual, 1)
		test.That(t, oct.TreeDepth(), test.ShouldEqual, depth)
	})
}

func TestVoxelCentroids(t *testing.T) {
	newOctree := func(leaf string) *Octree {
		oct, err := NewOctree(&OctreeConfig{
			Resolution:  1,
			Leaf:        leaf,
			BoundingBox: &BoundingBoxConfig{Min: r3.Vector{}, Max: r3.Vector{X: 4, Y: 4, Z: 4}},
		}, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		oct.SetInputCloud(NewFromVectors([]r3.Vector{
			{X: 0.1, Y: 0.1, Z: 0.1},
			{X: 0.3, Y: 0.3, Z: 0.3},
			{X: 3.5, Y: 3.5, Z: 3.5},
		}), nil)
		test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)
		return oct
	}

	oct := newOctree(LeafVector)
	test.That(t, oct.LeafCount(), test.ShouldEqual, 2)
	test.That(t, oct.VoxelDensityAtPoint(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}), test.ShouldEqual, 2)
	test.That(t, oct.VoxelDensityAtPoint(r3.Vector{X: 1.5, Y: 0.5, Z: 0.5}), test.ShouldEqual, 0)

	centroid, err := oct.VoxelCentroidAtPoint(r3.Vector{X: 0.9, Y: 0.9, Z: 0.9})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, centroid.X, test.ShouldAlmostEqual, 0.2)
	test.That(t, centroid.Y, test.ShouldAlmostEqual, 0.2)
	test.That(t, centroid.Z, test.ShouldAlmostEqual, 0.2)

	diff := cmp.Diff(
		[]r3.Vector{{X: 0.2, Y: 0.2, Z: 0.2}, {X: 3.5, Y: 3.5, Z: 3.5}},
		oct.VoxelCentroids(),
		cmpopts.EquateApprox(0, 1e-12),
	)
	test.That(t, diff, test.ShouldBeEmpty)
	test.That(t, oct.OccupiedVoxelCenters(), test.ShouldResemble,
		[]r3.Vector{{X: 0.5, Y: 0.5, Z: 0.5}, {X: 3.5, Y: 3.5, Z: 3.5}})

	_, err = oct.VoxelCentroidAtPoint(r3.Vector{X: 1.5, Y: 0.5, Z: 0.5})
	test.That(t, errors.Is(err, octree.ErrNotFound), test.ShouldBeTrue)
	_, err = oct.VoxelCentroidAtPoint(r3.Vector{X: 100})
	test.That(t, errors.Is(err, octree.ErrNotFound), test.ShouldBeTrue)

	counted := newOctree(LeafCounter)
	test.That(t, counted.VoxelDensityAtPoint(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}), test.ShouldEqual, 2)
	test.That(t, counted.VoxelCentroids(), test.ShouldBeEmpty)
	_, err = counted.VoxelCentroidAtPoint(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5})
	test.That(t, errors.Is(err, octree.ErrNotFound), test.ShouldBeTrue)
}

func TestVoxelBounds(t *testing.T) {
	oct := newTestOctree(t, StrategySingleBuffer, 1)
	test.That(t, oct.DefineBoundingBox(r3.Vector{}, r3.Vector{X: 6, Y: 6, Z: 6}), test.ShouldBeNil)
	test.That(t, oct.TreeDepth(), test.ShouldEqual, 3)

	min, max := oct.VoxelBounds(octree.Key{}, 0)
	test.That(t, min, test.ShouldResemble, r3.Vector{X: -1, Y: -1, Z: -1})
	test.That(t, max, test.ShouldResemble, r3.Vector{X: 7, Y: 7, Z: 7})

	min, max = oct.VoxelBounds(octree.Key{X: 1, Y: 0, Z: 1}, 1)
	test.That(t, min, test.ShouldResemble, r3.Vector{X: 3, Y: -1, Z: 3})
	test.That(t, max, test.ShouldResemble, r3.Vector{X: 7, Y: 3, Z: 7})

	min, max = oct.VoxelBounds(octree.Key{X: 7, Y: 7, Z: 7}, 3)
	test.That(t, min, test.ShouldResemble, r3.Vector{X: 6, Y: 6, Z: 6})
	test.That(t, max, test.ShouldResemble, r3.Vector{X: 7, Y: 7, Z: 7})
}

func TestOctreeSerialization(t *testing.T) {
	forEachOctree(t, 0.2, func(t *testing.T, oct *Octree) {
		cloud := MakeRandomPointCloud(3, 200, 2)
		oct.SetInputCloud(cloud, nil)
		test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)
		stream, indices := oct.SerializeTree()
		test.That(t, len(indices), test.ShouldEqual, cloud.Size())
		test.That(t, len(stream), test.ShouldEqual, oct.BranchCount())

		min, max := oct.BoundingBox()
		restored := newTestOctree(t, StrategyLowMemory, 0.2)
		err := restored.DeserializeTree(stream, indices)
		test.That(t, errors.Is(err, octree.ErrInvalidState), test.ShouldBeTrue)

		test.That(t, restored.tree.SetTreeDepth(oct.TreeDepth()), test.ShouldBeNil)
		restored.setBox(min)
		_, restoredMax := restored.BoundingBox()
		test.That(t, restoredMax, test.ShouldResemble, max)

		restored.SetInputCloud(cloud, nil)
		test.That(t, restored.DeserializeTree(stream, indices), test.ShouldBeNil)
		test.That(t, restored.LeafCount(), test.ShouldEqual, oct.LeafCount())
		test.That(t, restored.OccupiedVoxelCenters(), test.ShouldResemble, oct.OccupiedVoxelCenters())

		centers, err := restored.DeserializeVoxelCenters(stream)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, []r3.Vector(centers.Vectors()), test.ShouldResemble, oct.OccupiedVoxelCenters())
		test.That(t, restored.InputCloud(), test.ShouldEqual, centers)
		for i := 0; i < centers.Size(); i++ {
			indices, err := restored.VoxelSearch(centers.At(i))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, indices, test.ShouldResemble, []int{i})
		}

		err = restored.DeserializeTree(append(stream, 0xff), nil)
		test.That(t, errors.Is(err, octree.ErrCorruptStream), test.ShouldBeTrue)
		test.That(t, restored.LeafCount(), test.ShouldEqual, 0)
	})
}

func TestChangeDetection(t *testing.T) {
	oct := newTestOctree(t, StrategySingleBuffer, 1)
	err := oct.SwitchBuffers()
	test.That(t, errors.Is(err, octree.ErrInvalidState), test.ShouldBeTrue)
	_, err = oct.PointIndicesFromNewVoxels(0)
	test.That(t, errors.Is(err, octree.ErrInvalidState), test.ShouldBeTrue)

	logger, logs := logging.NewObservedTestLogger(t)
	oct, err = NewOctree(&OctreeConfig{
		Resolution:  1,
		Strategy:    StrategyDoubleBuffer,
		BoundingBox: &BoundingBoxConfig{Min: r3.Vector{}, Max: r3.Vector{X: 8, Y: 8, Z: 8}},
	}, logger)
	test.That(t, err, test.ShouldBeNil)

	first := NewFromVectors([]r3.Vector{
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: 2.5, Y: 2.5, Z: 2.5},
	})
	oct.SetInputCloud(first, nil)
	test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)

	test.That(t, oct.SwitchBuffers(), test.ShouldBeNil)
	test.That(t, oct.LeafCount(), test.ShouldEqual, 0)
	test.That(t, logs.FilterMessage("switched octree buffers").Len(), test.ShouldEqual, 1)
	err = oct.DefineBoundingBox(r3.Vector{}, r3.Vector{X: 1})
	test.That(t, errors.Is(err, octree.ErrInvalidState), test.ShouldBeTrue)

	second := NewFromVectors([]r3.Vector{
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: 5.5, Y: 5.5, Z: 5.5},
		{X: 5.6, Y: 5.6, Z: 5.6},
		{X: 6.5, Y: 0.5, Z: 0.5},
	})
	oct.SetInputCloud(second, nil)
	test.That(t, oct.AddPointsFromInputCloud(), test.ShouldBeNil)

	indices, err := oct.PointIndicesFromNewVoxels(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indices, test.ShouldResemble, []int{3, 1, 2})

	indices, err = oct.PointIndicesFromNewVoxels(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indices, test.ShouldResemble, []int{1, 2})
}

func TestOctreeConfig(t *testing.T) {
	conf, err := NewOctreeConfigFromAttributes(map[string]interface{}{
		"resolution": 0.25,
		"strategy":   "low_memory",
		"leaf":       "counter",
		"bounding_box": map[string]interface{}{
			"min": map[string]interface{}{"x": -1.0, "y": -2.0, "z": -3.0},
			"max": map[string]interface{}{"x": 1.0, "y": 2.0, "z": 3.0},
		},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &OctreeConfig{
		Resolution: 0.25,
		Strategy:   StrategyLowMemory,
		Leaf:       LeafCounter,
		BoundingBox: &BoundingBoxConfig{
			Min: r3.Vector{X: -1, Y: -2, Z: -3},
			Max: r3.Vector{X: 1, Y: 2, Z: 3},
		},
	})
	test.That(t, conf.Validate("octree"), test.ShouldBeNil)

	_, err = NewOctreeConfigFromAttributes(map[string]interface{}{"resolution": "fine"})
	test.That(t, err, test.ShouldNotBeNil)

	conf = &OctreeConfig{
		Resolution:  -1,
		Strategy:    "mmap",
		Leaf:        "points",
		BoundingBox: &BoundingBoxConfig{Min: r3.Vector{X: 1}},
	}
	err = conf.Validate("octree")
	test.That(t, err, test.ShouldNotBeNil)
	errs := multierr.Errors(err)
	test.That(t, errs, test.ShouldHaveLength, 4)
	test.That(t, errs[0].Error(), test.ShouldContainSubstring, "resolution")
	test.That(t, errs[1].Error(), test.ShouldContainSubstring, "mmap")
	test.That(t, errs[2].Error(), test.ShouldContainSubstring, "points")
	test.That(t, errs[3].Error(), test.ShouldContainSubstring, "bounding_box")
	for _, err := range errs {
		test.That(t, err.Error(), test.ShouldContainSubstring, octree.ErrInvalidConfiguration.Error())
	}

	_, err = NewOctree(conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBasicPointCloud(t *testing.T) {
	cloud := New()
	test.That(t, cloud.Size(), test.ShouldEqual, 0)
	meta := cloud.MetaData()
	test.That(t, meta.Count(), test.ShouldEqual, 0)

	test.That(t, cloud.Append(r3.Vector{X: 1, Y: -1, Z: 2}), test.ShouldEqual, 0)
	test.That(t, cloud.Append(r3.Vector{X: 3, Y: 1, Z: 0}), test.ShouldEqual, 1)
	test.That(t, cloud.Append(r3.Vector{X: math.NaN()}), test.ShouldEqual, 2)
	test.That(t, cloud.Size(), test.ShouldEqual, 3)

	meta = cloud.MetaData()
	test.That(t, meta.Count(), test.ShouldEqual, 2)
	test.That(t, meta.Min(), test.ShouldResemble, r3.Vector{X: 1, Y: -1, Z: 0})
	test.That(t, meta.Max(), test.ShouldResemble, r3.Vector{X: 3, Y: 1, Z: 2})
	test.That(t, meta.Center(), test.ShouldResemble, r3.Vector{X: 2, Y: 0, Z: 1})

	visited := 0
	cloud.Iterate(func(i int, p r3.Vector) bool {
		test.That(t, p, test.ShouldResemble, cloud.At(i))
		visited++
		return i < 1
	})
	test.That(t, visited, test.ShouldEqual, 2)
}
