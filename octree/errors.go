package octree

import "github.com/pkg/errors"

var (
	// ErrInvalidConfiguration is returned for unusable parameters such as a depth of zero.
	ErrInvalidConfiguration = errors.New("invalid octree configuration")
	// ErrInvalidState is returned when an operation is not allowed in the current tree state.
	ErrInvalidState = errors.New("invalid octree state")
	// ErrNotFound is returned when a key does not address a leaf.
	ErrNotFound = errors.New("voxel not found")
	// ErrCorruptStream is returned when an occupancy stream or its data cannot be decoded.
	ErrCorruptStream = errors.New("corrupt octree stream")
	// ErrOutOfRange is returned for queries on empty trees and for growth beyond MaxDepth.
	ErrOutOfRange = errors.New("out of range")
)
