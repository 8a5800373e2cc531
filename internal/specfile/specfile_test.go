package specfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridforge/stencil/internal/ir"
)

const diffusionCUE = `
operator: diffusion: {
	dimensions: {
		time: {}
		t:    {parent: "time", period: 2}
		x:    {}
	}
	grids: {
		u: {dims: ["t", "x"], dtype: "float64"}
	}
	equations: [{
		lhs: {grid: "u", offsets: [1, 0]}
		rhs: {op: "+", args: [
			{grid: "u", offsets: [0, -1]},
			{grid: "u", offsets: [0, 0]},
			{grid: "u", offsets: [0, 1]},
		]}
	}]
	options: {dle: "blocking", time_axis: "forward", subs: {c: 0.5}}
}
`

func compileString(t *testing.T, src string) ([]*Spec, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return CompileAll(v)
}

func TestCompile_Diffusion(t *testing.T) {
	specs, err := compileString(t, diffusionCUE)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	spec := specs[0]

	assert.Equal(t, "diffusion", spec.Name)

	require.Len(t, spec.Dims, 3)
	byName := make(map[string]*ir.Dimension)
	for _, d := range spec.Dims {
		byName[d.Name] = d
	}
	tb := byName["t"]
	require.NotNil(t, tb)
	assert.True(t, tb.IsBuffered())
	assert.Same(t, byName["time"], tb.Parent)
	assert.Equal(t, 2, tb.Size)
	assert.True(t, byName["x"].IsOpen())

	require.Len(t, spec.Grids, 1)
	u := spec.Grids[0]
	assert.Equal(t, ir.Float64, u.DType)
	assert.Equal(t, ir.External, u.Storage)
	require.Len(t, u.Dims, 2)
	assert.Same(t, tb, u.Dims[0])

	require.Len(t, spec.Eqs, 1)
	eq := spec.Eqs[0]
	assert.Equal(t, []int{1, 0}, eq.LHS.Offsets)
	assert.Equal(t, "u[t+1,x]=((u[t,x-1]+u[t,x])+u[t,x+1])", eq.Fingerprint(),
		"n-ary op nodes fold left to right")

	assert.Equal(t, "blocking", spec.Opts.DLE)
	assert.Equal(t, "forward", spec.Opts.TimeAxis)
	assert.Equal(t, map[string]float64{"c": 0.5}, spec.Opts.Subs)
}

func TestCompile_ExpressionLeaves(t *testing.T) {
	specs, err := compileString(t, `
operator: scale: {
	dimensions: x: {}
	grids: u: {dims: ["x"]}
	equations: [{
		lhs: {grid: "u"}
		rhs: {op: "*", args: [{grid: "u"}, {sym: "c"}, {num: 0.5}]}
	}]
}
`)
	require.NoError(t, err)
	eq := specs[0].Eqs[0]
	assert.Equal(t, []int{0}, eq.LHS.Offsets, "omitted offsets default to zero")
	assert.Equal(t, "u[x]=((u[x]*c)*0.5)", eq.Fingerprint())
}

func TestCompile_UnknownGridFails(t *testing.T) {
	_, err := compileString(t, `
operator: bad: {
	dimensions: x: {}
	grids: u: {dims: ["x"]}
	equations: [{lhs: {grid: "v"}, rhs: {num: 1}}]
}
`)
	requireCompileError(t, err, `unknown grid "v"`)
}

func TestCompile_OffsetRankMismatchFails(t *testing.T) {
	_, err := compileString(t, `
operator: bad: {
	dimensions: x: {}
	grids: u: {dims: ["x"]}
	equations: [{lhs: {grid: "u", offsets: [0, 0]}, rhs: {num: 1}}]
}
`)
	requireCompileError(t, err, "rank 1, got 2 offsets")
}

func TestCompile_BufferedWithoutPeriodFails(t *testing.T) {
	_, err := compileString(t, `
operator: bad: {
	dimensions: {
		time: {}
		t:    {parent: "time"}
	}
	grids: u: {dims: ["t"]}
	equations: [{lhs: {grid: "u"}, rhs: {num: 1}}]
}
`)
	requireCompileError(t, err, "ring period")
}

func TestCompile_UnknownParentFails(t *testing.T) {
	_, err := compileString(t, `
operator: bad: {
	dimensions: t: {parent: "time", period: 2}
	grids: u: {dims: ["t"]}
	equations: [{lhs: {grid: "u"}, rhs: {num: 1}}]
}
`)
	requireCompileError(t, err, `unknown parent dimension "time"`)
}

func TestCompile_BadDTypeFails(t *testing.T) {
	_, err := compileString(t, `
operator: bad: {
	dimensions: x: {}
	grids: u: {dims: ["x"], dtype: "complex128"}
	equations: [{lhs: {grid: "u"}, rhs: {num: 1}}]
}
`)
	requireCompileError(t, err, `unsupported dtype "complex128"`)
}

func TestCompile_BadTimeAxisFails(t *testing.T) {
	_, err := compileString(t, `
operator: bad: {
	dimensions: x: {}
	grids: u: {dims: ["x"]}
	equations: [{lhs: {grid: "u"}, rhs: {num: 1}}]
	options: {time_axis: "sideways"}
}
`)
	requireCompileError(t, err, "forward or backward")
}

func TestCompile_NoEquationsFails(t *testing.T) {
	_, err := compileString(t, `
operator: bad: {
	dimensions: x: {}
	grids: u: {dims: ["x"]}
	equations: []
}
`)
	requireCompileError(t, err, "at least one equation")
}

func TestCompileAll_NoOperatorFails(t *testing.T) {
	v := cuecontext.New().CompileString(`other: {}`)
	_, err := CompileAll(v)
	requireCompileError(t, err, "no operator defined")
}

func TestCompileAll_MultipleOperators(t *testing.T) {
	specs, err := compileString(t, `
operator: {
	a: {
		dimensions: x: {}
		grids: u: {dims: ["x"]}
		equations: [{lhs: {grid: "u"}, rhs: {num: 1}}]
	}
	b: {
		dimensions: y: {}
		grids: v: {dims: ["y"]}
		equations: [{lhs: {grid: "v"}, rhs: {num: 2}}]
	}
}
`)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "a", specs[0].Name)
	assert.Equal(t, "b", specs[1].Name)
}

func TestCompileFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diffusion.cue")
	require.NoError(t, os.WriteFile(path, []byte(diffusionCUE), 0o644))

	specs, err := CompileFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "diffusion", specs[0].Name)
}

func TestCompileFile_SyntaxErrorCarriesPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("operator: {"), 0o644))

	_, err := CompileFile(path)
	require.Error(t, err)
}

func requireCompileError(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "want CompileError, got %T: %v", err, err)
	assert.Contains(t, ce.Error(), contains)
}
