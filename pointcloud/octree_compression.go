package pointcloud

import (
	"bytes"
	"encoding/binary"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"
	"go.uber.org/multierr"

	"go.viam.com/octree/logging"
	"go.viam.com/octree/octree"
)

const (
	codecVersion = 1
	// maxRawStreamLength bounds the allocation made for a decoded stream.
	maxRawStreamLength = 1 << 28
)

var codecMagic = [4]byte{'V', 'X', 'O', 'C'}

// FrameType tells whether a frame is self contained or a diff against the previous frame.
type FrameType uint8

// Frame types written by OctreeEncoder.
const (
	IFrame FrameType = iota
	PFrame
)

func (f FrameType) String() string {
	if f == PFrame {
		return "P"
	}
	return "I"
}

// frameHeader precedes every encoded frame, little endian.
type frameHeader struct {
	Magic            [4]byte
	Version          uint8
	FrameType        FrameType
	Depth            uint8
	_                uint8
	Resolution       float64
	MinX, MinY, MinZ float64
	RawLength        uint32
	CompressedLength uint32
}

// OctreeCodecConfig configures an OctreeEncoder.
type OctreeCodecConfig struct {
	Resolution float64 `json:"resolution"`
	// IFrameRate forces a self contained frame every IFrameRate frames. 0 only writes one when the
	// bounding box changes.
	IFrameRate int `json:"i_frame_rate,omitempty"`
}

// Validate returns every problem found in the config.
func (conf *OctreeCodecConfig) Validate(path string) error {
	errs := (&OctreeConfig{Resolution: conf.Resolution}).Validate(path)
	if conf.IFrameRate < 0 {
		errs = multierr.Append(errs, invalidField(path, "i_frame_rate must not be negative, got %d", conf.IFrameRate))
	}
	return errs
}

// OctreeEncoder encodes successive point clouds into voxel occupancy frames. Frames whose bounding
// box matches the previous frame are written as XOR diffs.
type OctreeEncoder struct {
	logger   logging.Logger
	conf     OctreeCodecConfig
	octree   *Octree
	frameNum int

	lastDepth uint
	lastMin   r3.Vector
}

// NewOctreeEncoder creates an encoder.
func NewOctreeEncoder(conf *OctreeCodecConfig, logger logging.Logger) (*OctreeEncoder, error) {
	if err := conf.Validate("codec"); err != nil {
		return nil, err
	}
	oct, err := NewOctree(&OctreeConfig{Resolution: conf.Resolution, Strategy: StrategyDoubleBuffer}, logger)
	if err != nil {
		return nil, err
	}
	return &OctreeEncoder{logger: oct.logger, conf: *conf, octree: oct}, nil
}

// EncodeFrame indexes cloud and returns its encoded occupancy.
func (e *OctreeEncoder) EncodeFrame(cloud PointCloud) ([]byte, error) {
	if e.frameNum > 0 {
		if err := e.octree.SwitchBuffers(); err != nil {
			return nil, err
		}
	}
	e.octree.SetInputCloud(cloud, nil)
	if err := e.octree.AddPointsFromInputCloud(); err != nil {
		return nil, err
	}

	depth := e.octree.TreeDepth()
	frameType := PFrame
	if e.frameNum == 0 ||
		(e.conf.IFrameRate > 0 && e.frameNum%e.conf.IFrameRate == 0) ||
		depth != e.lastDepth || e.octree.min != e.lastMin {
		frameType = IFrame
	}

	var stream []byte
	if frameType == IFrame {
		stream = e.octree.tree.SerializeTree()
	} else {
		var err error
		if stream, _, err = e.octree.double.SerializeTreeXOR(); err != nil {
			return nil, err
		}
	}

	e.frameNum++
	e.lastDepth = depth
	e.lastMin = e.octree.min
	e.logger.Debugw("encoded octree frame", "type", frameType.String(), "voxels", e.octree.LeafCount(), "bytes", len(stream))

	return writeFrame(frameHeader{
		Magic:      codecMagic,
		Version:    codecVersion,
		FrameType:  frameType,
		Depth:      uint8(depth),
		Resolution: e.octree.resolution,
		MinX:       e.octree.min.X,
		MinY:       e.octree.min.Y,
		MinZ:       e.octree.min.Z,
	}, stream)
}

func writeFrame(header frameHeader, stream []byte) ([]byte, error) {
	body := stream
	compressed := make([]byte, len(stream))
	// The stream is kept raw when LZF cannot shrink it.
	if n, err := lzf.Compress(stream, compressed); err == nil && n > 0 && n < len(stream) {
		body = compressed[:n]
	}
	header.RawLength = uint32(len(stream))
	header.CompressedLength = uint32(len(body))

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

func readFrame(frame []byte) (frameHeader, []byte, error) {
	var header frameHeader
	reader := bytes.NewReader(frame)
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return header, nil, errors.Wrap(octree.ErrCorruptStream, "frame header is truncated")
	}
	switch {
	case header.Magic != codecMagic:
		return header, nil, errors.Wrap(octree.ErrCorruptStream, "bad frame magic")
	case header.Version != codecVersion:
		return header, nil, errors.Wrapf(octree.ErrCorruptStream, "unsupported frame version %d", header.Version)
	case header.FrameType != IFrame && header.FrameType != PFrame:
		return header, nil, errors.Wrapf(octree.ErrCorruptStream, "unknown frame type %d", header.FrameType)
	case header.RawLength > maxRawStreamLength || header.CompressedLength > header.RawLength:
		return header, nil, errors.Wrapf(octree.ErrCorruptStream, "bad stream lengths %d/%d", header.CompressedLength, header.RawLength)
	case int(header.CompressedLength) != reader.Len():
		return header, nil, errors.Wrapf(octree.ErrCorruptStream, "frame body holds %d bytes, header says %d",
			reader.Len(), header.CompressedLength)
	}

	body := frame[len(frame)-reader.Len():]
	if header.CompressedLength == header.RawLength {
		return header, body, nil
	}
	stream := make([]byte, header.RawLength)
	n, err := lzf.Decompress(body, stream)
	if err != nil || n != int(header.RawLength) {
		return header, nil, errors.Wrap(octree.ErrCorruptStream, "frame body does not decompress")
	}
	return header, stream, nil
}

// OctreeDecoder rebuilds voxel centers from frames written by an OctreeEncoder. Frames must be
// decoded in the order they were encoded. After a failed frame only an I-frame is accepted.
type OctreeDecoder struct {
	logger     logging.Logger
	octree     *Octree
	needIFrame bool
}

// NewOctreeDecoder creates a decoder.
func NewOctreeDecoder(logger logging.Logger) (*OctreeDecoder, error) {
	// The resolution is replaced by the first frame header.
	oct, err := NewOctree(&OctreeConfig{Resolution: 1, Strategy: StrategyDoubleBuffer}, logger)
	if err != nil {
		return nil, err
	}
	return &OctreeDecoder{logger: oct.logger, octree: oct, needIFrame: true}, nil
}

// DecodeFrame returns the centers of the voxels occupied in frame, in pre-order.
func (d *OctreeDecoder) DecodeFrame(frame []byte) (*BasicPointCloud, error) {
	cloud, err := d.decodeFrame(frame)
	if err != nil {
		d.needIFrame = true
		return nil, err
	}
	return cloud, nil
}

func (d *OctreeDecoder) decodeFrame(frame []byte) (*BasicPointCloud, error) {
	header, stream, err := readFrame(frame)
	if err != nil {
		return nil, err
	}
	headerMin := r3.Vector{X: header.MinX, Y: header.MinY, Z: header.MinZ}

	oct := d.octree
	switch header.FrameType {
	case IFrame:
		if header.Resolution <= 0 || !IsFinite(headerMin) {
			return nil, errors.Wrap(octree.ErrCorruptStream, "bad frame bounding box")
		}
		oct.tree.DeleteTree()
		oct.resolution = header.Resolution
		if err := oct.tree.SetTreeDepth(uint(header.Depth)); err != nil {
			return nil, errors.Wrap(octree.ErrCorruptStream, err.Error())
		}
		oct.setBox(headerMin)
		if err := oct.tree.DeserializeTree(stream, nil); err != nil {
			return nil, err
		}
		d.needIFrame = false
	case PFrame:
		if d.needIFrame {
			return nil, errors.Wrap(octree.ErrCorruptStream, "diff frame without a decoded I-frame before it")
		}
		if !oct.boxDefined || header.Resolution != oct.resolution ||
			uint(header.Depth) != oct.TreeDepth() || headerMin != oct.min {
			return nil, errors.Wrap(octree.ErrCorruptStream, "diff frame does not match the previous frame")
		}
		oct.double.SwitchBuffers()
		if err := oct.double.DeserializeTreeXOR(stream, nil); err != nil {
			return nil, err
		}
	}

	centers := oct.OccupiedVoxelCenters()
	d.logger.Debugw("decoded octree frame", "type", header.FrameType.String(), "voxels", len(centers))
	return NewFromVectors(centers), nil
}
