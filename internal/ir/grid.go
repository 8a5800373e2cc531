package ir

import "fmt"

// Grid is a contiguous row-major array value bound to a tensor parameter.
// The portable runtime evaluates every element type in float64; DType on
// the owning tensor governs traffic accounting only.
type Grid struct {
	Shape []int
	Data  []float64
}

// NewGrid allocates a zero-filled grid.
func NewGrid(shape ...int) *Grid {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Grid{Shape: append([]int(nil), shape...), Data: make([]float64, n)}
}

// Clone returns a deep copy. Autotuning substitutes clones for output
// buffers so trial runs never corrupt caller-visible state.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		Shape: append([]int(nil), g.Shape...),
		Data:  append([]float64(nil), g.Data...),
	}
	return out
}

// Fill sets every element to v.
func (g *Grid) Fill(v float64) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

// Index converts a multi-index to the flat offset. idx must have one entry
// per axis; callers are responsible for bounds.
func (g *Grid) Index(idx []int) int {
	if len(idx) != len(g.Shape) {
		panic(fmt.Sprintf("grid rank %d indexed with %d subscripts", len(g.Shape), len(idx)))
	}
	flat := 0
	for i, x := range idx {
		flat = flat*g.Shape[i] + x
	}
	return flat
}

// At returns the element at idx.
func (g *Grid) At(idx ...int) float64 { return g.Data[g.Index(idx)] }

// Set stores v at idx.
func (g *Grid) Set(v float64, idx ...int) { g.Data[g.Index(idx)] = v }
