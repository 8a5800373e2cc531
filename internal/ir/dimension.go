package ir

// Direction indicates the order in which an axis is traversed.
type Direction int

const (
	// Forward traverses an axis from low to high index.
	Forward Direction = iota
	// Backward traverses an axis from high to low index.
	Backward
)

// Dimension is a named iteration axis.
//
// Size == 0 means the extent is open: it is resolved at call time from the
// shape of a bound array or from an explicit keyword argument.
//
// A Dimension with a non-nil Parent is buffered: a bounded wrap-around axis
// (typically a small ring of time-history slots) that aliases its parent for
// ordering, merging and sizing decisions. For a buffered dimension, Size is
// the ring period, not a data extent.
type Dimension struct {
	Name    string
	Size    int
	Parent  *Dimension
	Reverse bool
}

// NewDimension creates an open dimension.
func NewDimension(name string) *Dimension {
	return &Dimension{Name: name}
}

// NewFixedDimension creates a dimension with a fixed extent.
func NewFixedDimension(name string, size int) *Dimension {
	return &Dimension{Name: name, Size: size}
}

// NewBufferedDimension creates a bounded ring axis aliasing parent.
// period is the number of ring slots.
func NewBufferedDimension(name string, parent *Dimension, period int) *Dimension {
	return &Dimension{Name: name, Size: period, Parent: parent}
}

// IsBuffered reports whether d is a bounded ring aliasing a parent axis.
func (d *Dimension) IsBuffered() bool { return d.Parent != nil }

// IsOpen reports whether the extent must be resolved at call time.
func (d *Dimension) IsOpen() bool { return d.Size == 0 }

// Root resolves a buffered dimension to its parent identity. Allocation,
// ordering and merge comparisons always operate on roots so that a ring
// axis and its parent are never scheduled as two distinct loops.
func (d *Dimension) Root() *Dimension {
	if d.Parent != nil {
		return d.Parent
	}
	return d
}
