package ir

// Node is one vertex of the iteration/expression tree. The variant set is
// closed: Iteration, Expression, Element, Section, Call, List.
type Node interface {
	isNode()
}

// BlockRole distinguishes the two loops a tiled iteration is split into.
type BlockRole int

const (
	// BlockOuter steps across the iteration space one tile at a time.
	BlockOuter BlockRole = iota
	// BlockInner sweeps the points of the current tile.
	BlockInner
)

// Block marks an iteration produced by loop tiling. Param names the
// blocking parameter whose bound value is the tile extent.
type Block struct {
	Param string
	Role  BlockRole
}

// Iteration represents one loop over a dimension.
//
// Limit is the fixed trip extent; 0 means open, resolved at call time from
// the dimension's bound size. OffsetMin and OffsetMax shrink the traversed
// range so that every stencil access stays in bounds. Body nodes are owned
// exclusively by this iteration.
type Iteration struct {
	Dim                  *Dimension
	Limit                int
	OffsetMin, OffsetMax int
	Body                 []Node
	Sequential           bool
	Block                *Block
}

// Bounds returns the half-open traversal range for a resolved extent.
func (it *Iteration) Bounds(resolved int) (start, end int) {
	start = 0
	if it.OffsetMin < 0 {
		start = -it.OffsetMin
	}
	end = resolved
	if it.OffsetMax > 0 {
		end = resolved - it.OffsetMax
	}
	if end < start {
		end = start
	}
	return start, end
}

// Extent returns the trip count for a resolved extent.
func (it *Iteration) Extent(resolved int) int {
	start, end := it.Bounds(resolved)
	return end - start
}

// SameSpace reports whether two iterations traverse an identical index
// space: same root dimension, same fixed limit, same offset range. Loops
// with identical spaces are merge candidates.
func (it *Iteration) SameSpace(other *Iteration) bool {
	return it.Dim.Root() == other.Dim.Root() &&
		it.Limit == other.Limit &&
		it.OffsetMin == other.OffsetMin &&
		it.OffsetMax == other.OffsetMax
}

// Expression is one scalar or tensor assignment. Local marks an inline
// scalar declaration: the target is declared at its first (only) use.
type Expression struct {
	Eq    *Assign
	Local bool
}

// DeclKind classifies a housekeeping element.
type DeclKind int

const (
	// DeclStack declares a scratch array at an iteration boundary;
	// deallocation is implicit at scope exit.
	DeclStack DeclKind = iota
	// DeclHeapAlloc allocates a scratch array once before the routine body.
	DeclHeapAlloc
	// DeclHeapFree releases a heap allocation once after the routine body.
	DeclHeapFree
)

// Element is a housekeeping statement inserted by the allocation engine.
type Element struct {
	Kind   DeclKind
	Tensor *Tensor
}

// Section wraps a maximal perfect iteration subtree with a named timer.
type Section struct {
	Name string
	Body Node
}

// Call transfers control to a helper routine generated by the loop engine.
// The callee shares the caller's symbol environment.
type Call struct {
	Name string
}

// List is an ordered sequence of nodes with an optional header and footer,
// used to bracket a routine body with heap allocations and frees.
type List struct {
	Header []Node
	Body   []Node
	Footer []Node
}

func (*Iteration) isNode()  {}
func (*Expression) isNode() {}
func (*Element) isNode()    {}
func (*Section) isNode()    {}
func (*Call) isNode()       {}
func (*List) isNode()       {}

// Routine is a helper function generated by the loop engine. It is not a
// tree node; it is referenced by Call nodes and carries its own body.
type Routine struct {
	Name string
	Body []Node
}
