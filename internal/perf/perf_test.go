package perf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridforge/stencil/internal/ir"
)

// nest2d builds a perfect x/y nest over open dimensions computing
// a[x][y] = a[x][y]*2 + 1, which costs two operations and touches one
// distinct element per point.
func nest2d() ([]ir.Node, *ir.Dimension, *ir.Dimension) {
	x := ir.NewDimension("x")
	y := ir.NewDimension("y")
	a := &ir.Tensor{Name: "a", Dims: []*ir.Dimension{x, y}, DType: ir.Float64, Storage: ir.External}
	at := &ir.Access{Tensor: a, Offsets: []int{0, 0}}
	eq := &ir.Assign{
		LHS: at,
		RHS: &ir.BinOp{Op: ir.Add, L: &ir.BinOp{Op: ir.Mul, L: at, R: &ir.Num{Val: 2}}, R: &ir.Num{Val: 1}},
	}
	tree := &ir.Iteration{Dim: x, Body: []ir.Node{
		&ir.Iteration{Dim: y, Body: []ir.Node{&ir.Expression{Eq: eq}}},
	}}
	return []ir.Node{tree}, x, y
}

func TestInstrument_WrapsOutermostPerfectNest(t *testing.T) {
	body, _, _ := nest2d()

	prof, out := Instrument(body)

	require.Len(t, out, 1)
	sec, ok := out[0].(*ir.Section)
	require.True(t, ok, "the nest must be wrapped in a timed section")
	assert.Equal(t, "loop_x_0", sec.Name)

	require.Len(t, prof.Sections, 1)
	sp := prof.Sections[0]
	assert.Equal(t, 2, sp.Ops)
	assert.Equal(t, 1, sp.Accesses)
	require.Len(t, sp.Iters, 2, "the whole nest belongs to one section")
	assert.Equal(t, "x", sp.Iters[0].Dim.Name)
	assert.Equal(t, "y", sp.Iters[1].Dim.Name)
}

func TestInstrument_ImperfectNestWrapsInnerNests(t *testing.T) {
	body, x, y := nest2d()
	nested := body[0].(*ir.Iteration)

	z := ir.NewDimension("z")
	b := &ir.Tensor{Name: "b", Dims: []*ir.Dimension{z}, DType: ir.Float64, Storage: ir.External}
	second := &ir.Iteration{Dim: z, Body: []ir.Node{
		&ir.Expression{Eq: &ir.Assign{
			LHS: &ir.Access{Tensor: b, Offsets: []int{0}},
			RHS: &ir.Num{Val: 0},
		}},
	}}
	// An outer loop holding two siblings is not perfect; its children are.
	outer := &ir.Iteration{Dim: ir.NewDimension("t"), Body: []ir.Node{nested, second}}

	prof, out := Instrument([]ir.Node{outer})

	it, ok := out[0].(*ir.Iteration)
	require.True(t, ok, "an imperfect loop stays unwrapped")
	require.Len(t, it.Body, 2)
	assert.IsType(t, &ir.Section{}, it.Body[0])
	assert.IsType(t, &ir.Section{}, it.Body[1])

	require.Len(t, prof.Sections, 2)
	assert.Equal(t, "loop_x_0", prof.Sections[0].Name)
	assert.Equal(t, "loop_z_1", prof.Sections[1].Name)
	_ = x
	_ = y
}

func TestSummarize_FlopAndTrafficAccounting(t *testing.T) {
	body, _, _ := nest2d()
	prof, _ := Instrument(body)

	sizes := map[string]int{"x": 10, "y": 10}
	timings := ir.Timings{"loop_x_0": 0.001}

	s := prof.Summarize(timings, sizes, 8)

	m, ok := s.Sections["main"]
	require.True(t, ok, "the dominant section is renamed main")
	assert.Equal(t, 200, m.Flops, "2 ops over a 10x10 space")
	assert.Equal(t, 800, m.Traffic, "1 access over 100 elements of 8 bytes")
	assert.InDelta(t, 0.25, m.OI, 1e-12)
	assert.InDelta(t, 200.0/1e9/0.001, m.GFlopss, 1e-12)
	assert.Equal(t, []string{"main"}, s.Order)
}

func TestSummarize_OffsetsShrinkIterspaceNotDataspace(t *testing.T) {
	body, _, _ := nest2d()
	nest := body[0].(*ir.Iteration)
	nest.OffsetMin, nest.OffsetMax = -1, 1

	prof, _ := Instrument([]ir.Node{nest})
	s := prof.Summarize(ir.Timings{"loop_x_0": 1}, map[string]int{"x": 10, "y": 10}, 8)

	m := s.Sections["main"]
	// 8 interior rows of 10 points each, but the traffic still spans the
	// full 10x10 array.
	assert.Equal(t, 2*8*10, m.Flops)
	assert.Equal(t, 1*10*10*8, m.Traffic)
}

func TestSummarize_SlowestSectionBecomesMain(t *testing.T) {
	body, _, _ := nest2d()
	nested := body[0].(*ir.Iteration)

	z := ir.NewDimension("z")
	b := &ir.Tensor{Name: "b", Dims: []*ir.Dimension{z}, DType: ir.Float64, Storage: ir.External}
	second := &ir.Iteration{Dim: z, Body: []ir.Node{
		&ir.Expression{Eq: &ir.Assign{
			LHS: &ir.Access{Tensor: b, Offsets: []int{0}},
			RHS: &ir.Num{Val: 0},
		}},
	}}

	prof, _ := Instrument([]ir.Node{nested, second})
	timings := ir.Timings{"loop_x_0": 0.2, "loop_z_1": 0.9}
	s := prof.Summarize(timings, map[string]int{"x": 4, "y": 4, "z": 4}, 8)

	assert.Contains(t, s.Sections, "loop_x_0")
	assert.Contains(t, s.Sections, "main")
	assert.NotContains(t, s.Sections, "loop_z_1")
	assert.Equal(t, 0.9, s.Sections["main"].Time)
	assert.Equal(t, []string{"loop_x_0", "main"}, s.Order)
}

func TestSummarize_BufferedDimensionSpansItsPeriod(t *testing.T) {
	time := ir.NewDimension("time")
	tbuf := ir.NewBufferedDimension("t", time, 2)
	x := ir.NewDimension("x")
	u := &ir.Tensor{Name: "u", Dims: []*ir.Dimension{tbuf, x}, DType: ir.Float64, Storage: ir.External}
	at := &ir.Access{Tensor: u, Offsets: []int{0, 0}}
	eq := &ir.Assign{LHS: at, RHS: &ir.BinOp{Op: ir.Add, L: at, R: &ir.Num{Val: 1}}}

	// The buffered loop is open; its trip count comes from the parent
	// axis at call time.
	nest := &ir.Iteration{Dim: tbuf, Sequential: true, Body: []ir.Node{
		&ir.Iteration{Dim: x, Body: []ir.Node{&ir.Expression{Eq: eq}}},
	}}

	prof, _ := Instrument([]ir.Node{nest})
	s := prof.Summarize(ir.Timings{"loop_t_0": 1}, map[string]int{"time": 100, "x": 10}, 8)

	m := s.Sections["main"]
	assert.Equal(t, 1*(100*10), m.Flops, "the trip count follows the parent extent")
	// The data span along the buffered axis is the ring period, not the
	// parent's resolved extent.
	assert.Equal(t, 1*(2*10)*8, m.Traffic)
}

func TestReport_WritesOneLinePerSection(t *testing.T) {
	body, _, _ := nest2d()
	prof, _ := Instrument(body)
	s := prof.Summarize(ir.Timings{"loop_x_0": 0.001}, map[string]int{"x": 10, "y": 10}, 8)

	var buf bytes.Buffer
	s.Report(&buf)
	assert.Contains(t, buf.String(), "main:")
	assert.Contains(t, buf.String(), "OI 0.25")
}
