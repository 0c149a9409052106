package octree

// Container is the data held by a leaf.
type Container[D any] interface {
	Add(value D)
	// First returns the first element held, if any.
	First() (D, bool)
	Data() []D
	Size() int
	Reset()
}

// LeafFactory creates the container of a new leaf.
type LeafFactory[D any] func() Container[D]

// VectorLeaf keeps every value added to it in insertion order.
type VectorLeaf[D any] struct {
	data []D
}

// NewVectorLeaf returns an empty VectorLeaf.
func NewVectorLeaf[D any]() Container[D] {
	return &VectorLeaf[D]{}
}

// Add appends value.
func (l *VectorLeaf[D]) Add(value D) {
	l.data = append(l.data, value)
}

// First returns the earliest value.
func (l *VectorLeaf[D]) First() (D, bool) {
	if len(l.data) == 0 {
		var zero D
		return zero, false
	}
	return l.data[0], true
}

// Data returns the values in insertion order.
func (l *VectorLeaf[D]) Data() []D {
	return l.data
}

// Size returns the number of values.
func (l *VectorLeaf[D]) Size() int {
	return len(l.data)
}

// Reset drops all values.
func (l *VectorLeaf[D]) Reset() {
	l.data = l.data[:0]
}

// SingleLeaf keeps only the most recently added value.
type SingleLeaf[D any] struct {
	value D
	set   bool
}

// NewSingleLeaf returns an empty SingleLeaf.
func NewSingleLeaf[D any]() Container[D] {
	return &SingleLeaf[D]{}
}

// Add replaces the held value.
func (l *SingleLeaf[D]) Add(value D) {
	l.value = value
	l.set = true
}

// First returns the held value.
func (l *SingleLeaf[D]) First() (D, bool) {
	return l.value, l.set
}

// Data returns the held value as a one element slice.
func (l *SingleLeaf[D]) Data() []D {
	if !l.set {
		return nil
	}
	return []D{l.value}
}

// Size is 1 once a value was added.
func (l *SingleLeaf[D]) Size() int {
	if l.set {
		return 1
	}
	return 0
}

// Reset drops the held value.
func (l *SingleLeaf[D]) Reset() {
	var zero D
	l.value = zero
	l.set = false
}

// CounterLeaf only counts the values added to it. It is used to measure voxel density.
type CounterLeaf[D any] struct {
	count int
}

// NewCounterLeaf returns a CounterLeaf at zero.
func NewCounterLeaf[D any]() Container[D] {
	return &CounterLeaf[D]{}
}

// Add increments the counter.
func (l *CounterLeaf[D]) Add(D) {
	l.count++
}

// First never returns a value.
func (l *CounterLeaf[D]) First() (D, bool) {
	var zero D
	return zero, false
}

// Data is always empty.
func (l *CounterLeaf[D]) Data() []D {
	return nil
}

// Size returns the number of values added.
func (l *CounterLeaf[D]) Size() int {
	return l.count
}

// Reset zeroes the counter.
func (l *CounterLeaf[D]) Reset() {
	l.count = 0
}
