package ir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DType identifies the numeric element type of a tensor.
type DType int

const (
	Float32 DType = iota
	Float64
	Int32
)

// ElemSize returns the size of one element in bytes.
func (t DType) ElemSize() int {
	switch t {
	case Float32, Int32:
		return 4
	default:
		return 8
	}
}

func (t DType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "float64"
	}
}

// StorageClass records where a tensor's backing memory lives.
type StorageClass int

const (
	// External tensors are supplied by the caller as routine arguments.
	External StorageClass = iota
	// Stack tensors are scratch arrays placed at an iteration boundary.
	Stack
	// Heap tensors are scratch arrays allocated once per routine call.
	Heap
)

func (s StorageClass) String() string {
	switch s {
	case Stack:
		return "stack"
	case Heap:
		return "heap"
	default:
		return "external"
	}
}

// Tensor describes a named array indexed by an ordered tuple of dimensions.
// A Tensor with no dimensions is a scalar temporary.
type Tensor struct {
	Name    string
	Dims    []*Dimension
	DType   DType
	Storage StorageClass
}

// IsScalar reports whether the tensor is a plain scalar temporary.
func (t *Tensor) IsScalar() bool { return len(t.Dims) == 0 }

// Indexes reports whether dim (or its root) appears in the tensor's
// indexing dimensions.
func (t *Tensor) Indexes(dim *Dimension) bool {
	for _, d := range t.Dims {
		if d.Root() == dim.Root() {
			return true
		}
	}
	return false
}

// Expr is a symbolic right-hand-side expression. The set of variants is
// closed: Access, Sym, Num, BinOp.
type Expr interface {
	// write appends the canonical form used for fingerprinting.
	write(b *strings.Builder)
}

// Access reads or writes one tensor element at fixed integer offsets from
// the current loop indices. Offsets is parallel to Tensor.Dims.
type Access struct {
	Tensor  *Tensor
	Offsets []int
}

// Sym is a free scalar symbol, either a substitutable constant (resolved by
// the subs configuration at build time) or a scalar temporary target.
type Sym struct {
	Name string
}

// Num is a numeric literal.
type Num struct {
	Val float64
}

// Op is a binary arithmetic operator.
type Op string

const (
	Add Op = "+"
	Sub Op = "-"
	Mul Op = "*"
	Div Op = "/"
)

// BinOp applies a binary arithmetic operator.
type BinOp struct {
	Op   Op
	L, R Expr
}

func (a *Access) write(b *strings.Builder) {
	b.WriteString(a.Tensor.Name)
	b.WriteByte('[')
	for i, off := range a.Offsets {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.Tensor.Dims[i].Name)
		if off != 0 {
			b.WriteString(fmt.Sprintf("%+d", off))
		}
	}
	b.WriteByte(']')
}

func (s *Sym) write(b *strings.Builder) { b.WriteString(s.Name) }

func (n *Num) write(b *strings.Builder) {
	b.WriteString(strconv.FormatFloat(n.Val, 'g', -1, 64))
}

func (o *BinOp) write(b *strings.Builder) {
	b.WriteByte('(')
	o.L.write(b)
	b.WriteString(string(o.Op))
	o.R.write(b)
	b.WriteByte(')')
}

// String returns the canonical textual form of an expression. Two
// expressions with equal strings are interchangeable for redundancy
// elimination.
func ExprString(e Expr) string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

// Assign is one update equation: a tensor (or scalar) element on the left,
// a symbolic expression on the right.
type Assign struct {
	LHS *Access
	RHS Expr
}

// Fingerprint returns a stable identity for the whole equation. Equations
// with identical fingerprints compute the same value into the same target
// and are redundant within one scope.
func (a *Assign) Fingerprint() string {
	var b strings.Builder
	a.LHS.write(&b)
	b.WriteByte('=')
	a.RHS.write(&b)
	return b.String()
}

// IsScalar reports whether the assignment defines a scalar temporary.
func (a *Assign) IsScalar() bool { return a.LHS.Tensor.IsScalar() }

// Accesses returns every tensor access in the equation, left side first,
// then right side in evaluation order.
func (a *Assign) Accesses() []*Access {
	out := []*Access{a.LHS}
	return appendAccesses(out, a.RHS)
}

func appendAccesses(out []*Access, e Expr) []*Access {
	switch v := e.(type) {
	case *Access:
		out = append(out, v)
	case *BinOp:
		out = appendAccesses(out, v.L)
		out = appendAccesses(out, v.R)
	}
	return out
}

// Tensors returns the distinct tensors referenced by the equation, in
// first-seen order.
func (a *Assign) Tensors() []*Tensor {
	seen := make(map[*Tensor]bool)
	var out []*Tensor
	for _, acc := range a.Accesses() {
		if !seen[acc.Tensor] {
			seen[acc.Tensor] = true
			out = append(out, acc.Tensor)
		}
	}
	return out
}

// IndexOffsets returns the per-dimension offset sets used by the equation.
func (a *Assign) IndexOffsets() *OffsetMap {
	m := NewOffsetMap()
	for _, acc := range a.Accesses() {
		for i, d := range acc.Tensor.Dims {
			m.Add(d, acc.Offsets[i])
		}
	}
	return m
}

// SubstituteSyms replaces free symbols with numeric literals, rebuilding the
// expression tree. Symbols absent from subs are left untouched.
func SubstituteSyms(e Expr, subs map[string]float64) Expr {
	switch v := e.(type) {
	case *Sym:
		if val, ok := subs[v.Name]; ok {
			return &Num{Val: val}
		}
		return v
	case *BinOp:
		return &BinOp{Op: v.Op, L: SubstituteSyms(v.L, subs), R: SubstituteSyms(v.R, subs)}
	default:
		return v
	}
}

// OffsetMap is an insertion-ordered mapping from dimension to the set of
// integer offsets used against it.
type OffsetMap struct {
	order []*Dimension
	sets  map[*Dimension]map[int]bool
}

// NewOffsetMap creates an empty offset map.
func NewOffsetMap() *OffsetMap {
	return &OffsetMap{sets: make(map[*Dimension]map[int]bool)}
}

// Add records one offset against a dimension.
func (m *OffsetMap) Add(d *Dimension, off int) {
	set, ok := m.sets[d]
	if !ok {
		set = make(map[int]bool)
		m.sets[d] = set
		m.order = append(m.order, d)
	}
	set[off] = true
}

// Dims returns the dimensions in first-insertion order.
func (m *OffsetMap) Dims() []*Dimension { return m.order }

// Values returns the sorted offsets recorded against d.
func (m *OffsetMap) Values(d *Dimension) []int {
	set := m.sets[d]
	out := make([]int, 0, len(set))
	for off := range set {
		out = append(out, off)
	}
	sort.Ints(out)
	return out
}

// Range returns the minimum and maximum offset recorded against d.
// Both are zero when d is absent.
func (m *OffsetMap) Range(d *Dimension) (min, max int) {
	vals := m.Values(d)
	if len(vals) == 0 {
		return 0, 0
	}
	return vals[0], vals[len(vals)-1]
}

// Union merges other into m, preserving m's insertion order for dimensions
// already present and appending new ones.
func (m *OffsetMap) Union(other *OffsetMap) {
	for _, d := range other.order {
		for off := range other.sets[d] {
			m.Add(d, off)
		}
	}
}

// Cluster groups update equations that share iteration-offset structure.
// It is the unit the scheduler consumes; all member equations are emitted
// into one loop nest.
type Cluster struct {
	Exprs []*Assign
}

// Offsets returns the union of per-dimension offset sets across all member
// equations, in first-seen dimension order.
func (c *Cluster) Offsets() *OffsetMap {
	m := NewOffsetMap()
	for _, e := range c.Exprs {
		m.Union(e.IndexOffsets())
	}
	return m
}
