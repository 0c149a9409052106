package pointcloud

import (
	"math"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/octree/octree"
)

// Storage strategies accepted by OctreeConfig.Strategy.
const (
	StrategySingleBuffer = "single"
	StrategyLowMemory    = "low_memory"
	StrategyDoubleBuffer = "double_buffer"
)

// Leaf kinds accepted by OctreeConfig.Leaf.
const (
	LeafVector  = "vector"
	LeafCounter = "counter"
)

// BoundingBoxConfig is an axis aligned box given by its corners.
type BoundingBoxConfig struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// OctreeConfig describes how a point cloud octree is built.
type OctreeConfig struct {
	// Resolution is the side length of the deepest voxels.
	Resolution  float64            `json:"resolution"`
	Strategy    string             `json:"strategy,omitempty"`
	Leaf        string             `json:"leaf,omitempty"`
	BoundingBox *BoundingBoxConfig `json:"bounding_box,omitempty"`
}

// NewOctreeConfigFromAttributes decodes an attribute map, e.g. parsed JSON, into an OctreeConfig.
func NewOctreeConfigFromAttributes(attributes map[string]interface{}) (*OctreeConfig, error) {
	var conf OctreeConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &conf})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "failed to decode octree config")
	}
	return &conf, nil
}

func invalidField(path, format string, args ...interface{}) error {
	return utils.NewConfigValidationError(path, errors.Wrapf(octree.ErrInvalidConfiguration, format, args...))
}

// Validate returns every problem found in the config.
func (conf *OctreeConfig) Validate(path string) error {
	var errs error
	if conf.Resolution <= 0 || math.IsInf(conf.Resolution, 0) || math.IsNaN(conf.Resolution) {
		errs = multierr.Append(errs, invalidField(path, "resolution must be a positive number, got %v", conf.Resolution))
	}
	switch conf.Strategy {
	case "", StrategySingleBuffer, StrategyLowMemory, StrategyDoubleBuffer:
	default:
		errs = multierr.Append(errs, invalidField(path, "unknown strategy %q", conf.Strategy))
	}
	switch conf.Leaf {
	case "", LeafVector, LeafCounter:
	default:
		errs = multierr.Append(errs, invalidField(path, "unknown leaf %q", conf.Leaf))
	}
	if box := conf.BoundingBox; box != nil {
		if !IsFinite(box.Min) || !IsFinite(box.Max) {
			errs = multierr.Append(errs, invalidField(path, "bounding_box corners must be finite"))
		} else if box.Max.X < box.Min.X || box.Max.Y < box.Min.Y || box.Max.Z < box.Min.Z {
			errs = multierr.Append(errs, invalidField(path, "bounding_box max %v is below min %v", box.Max, box.Min))
		}
	}
	return errs
}
