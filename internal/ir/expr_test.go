package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laplace2D() (*Tensor, *Dimension, *Dimension) {
	x := NewDimension("x")
	y := NewDimension("y")
	u := &Tensor{Name: "u", Dims: []*Dimension{x, y}, DType: Float64}
	return u, x, y
}

func TestAssign_Fingerprint_Stable(t *testing.T) {
	u, _, _ := laplace2D()

	eq := &Assign{
		LHS: &Access{Tensor: u, Offsets: []int{0, 0}},
		RHS: &BinOp{
			Op: Mul,
			L:  &Num{Val: 0.25},
			R: &BinOp{
				Op: Add,
				L:  &Access{Tensor: u, Offsets: []int{-1, 0}},
				R:  &Access{Tensor: u, Offsets: []int{1, 0}},
			},
		},
	}

	first := eq.Fingerprint()
	second := eq.Fingerprint()
	assert.Equal(t, first, second, "fingerprint must be deterministic")
	assert.Equal(t, "u[x,y]=(0.25*(u[x-1,y]+u[x+1,y]))", first)
}

func TestAssign_Fingerprint_DistinguishesOffsets(t *testing.T) {
	u, _, _ := laplace2D()

	a := &Assign{
		LHS: &Access{Tensor: u, Offsets: []int{0, 0}},
		RHS: &Access{Tensor: u, Offsets: []int{1, 0}},
	}
	b := &Assign{
		LHS: &Access{Tensor: u, Offsets: []int{0, 0}},
		RHS: &Access{Tensor: u, Offsets: []int{0, 1}},
	}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestAssign_IndexOffsets(t *testing.T) {
	u, x, y := laplace2D()

	eq := &Assign{
		LHS: &Access{Tensor: u, Offsets: []int{0, 0}},
		RHS: &BinOp{
			Op: Add,
			L:  &Access{Tensor: u, Offsets: []int{-1, 0}},
			R:  &Access{Tensor: u, Offsets: []int{1, 2}},
		},
	}

	m := eq.IndexOffsets()
	require.Equal(t, []*Dimension{x, y}, m.Dims())
	assert.Equal(t, []int{-1, 0, 1}, m.Values(x))
	assert.Equal(t, []int{0, 2}, m.Values(y))

	min, max := m.Range(x)
	assert.Equal(t, -1, min)
	assert.Equal(t, 1, max)
}

func TestSubstituteSyms(t *testing.T) {
	u, _, _ := laplace2D()

	rhs := &BinOp{
		Op: Mul,
		L:  &Sym{Name: "dt"},
		R:  &Access{Tensor: u, Offsets: []int{0, 0}},
	}

	out := SubstituteSyms(rhs, map[string]float64{"dt": 0.5})
	bin, ok := out.(*BinOp)
	require.True(t, ok)
	num, ok := bin.L.(*Num)
	require.True(t, ok, "dt should have been replaced by a literal")
	assert.Equal(t, 0.5, num.Val)

	// Unknown symbols survive untouched.
	kept := SubstituteSyms(&Sym{Name: "c"}, map[string]float64{"dt": 0.5})
	_, ok = kept.(*Sym)
	assert.True(t, ok)
}

func TestDimension_RootResolvesBuffered(t *testing.T) {
	time := NewDimension("time")
	tbuf := NewBufferedDimension("t", time, 2)

	assert.True(t, tbuf.IsBuffered())
	assert.Same(t, time, tbuf.Root())
	assert.Same(t, time, time.Root())
	assert.False(t, tbuf.IsOpen(), "a buffered dimension carries its ring period as size")
	assert.True(t, time.IsOpen())
}

func TestTensor_Indexes_SeesThroughBuffering(t *testing.T) {
	time := NewDimension("time")
	tbuf := NewBufferedDimension("t", time, 2)
	x := NewDimension("x")
	u := &Tensor{Name: "u", Dims: []*Dimension{tbuf, x}}

	assert.True(t, u.Indexes(tbuf))
	assert.True(t, u.Indexes(time), "buffered index must match its parent identity")
	assert.False(t, u.Indexes(NewDimension("y")))
}

func TestIteration_BoundsAndExtent(t *testing.T) {
	x := NewDimension("x")
	it := &Iteration{Dim: x, OffsetMin: -1, OffsetMax: 1}

	start, end := it.Bounds(10)
	assert.Equal(t, 1, start)
	assert.Equal(t, 9, end)
	assert.Equal(t, 8, it.Extent(10))

	flat := &Iteration{Dim: x}
	assert.Equal(t, 10, flat.Extent(10))
}

func TestGrid_RowMajorIndexing(t *testing.T) {
	g := NewGrid(3, 4)
	require.Len(t, g.Data, 12)

	g.Set(7.5, 1, 2)
	assert.Equal(t, 7.5, g.At(1, 2))
	assert.Equal(t, 7.5, g.Data[1*4+2])

	c := g.Clone()
	c.Set(0, 1, 2)
	assert.Equal(t, 7.5, g.At(1, 2), "clone must not alias the original")
}
