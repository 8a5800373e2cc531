package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridforge/stencil/internal/bind"
	"github.com/gridforge/stencil/internal/ir"
)

func TestUniform(t *testing.T) {
	g := Uniform(2.5, 2, 3)
	assert.Equal(t, []int{2, 3}, g.Shape)
	for _, v := range g.Data {
		assert.Equal(t, 2.5, v)
	}
}

func TestRamp(t *testing.T) {
	g := Ramp(2, 2)
	assert.Equal(t, []float64{0, 1, 2, 3}, g.Data)
}

func TestScriptedKernel(t *testing.T) {
	k := &ScriptedKernel{Timings: ir.Timings{"loop_x_0": 0.5}}

	timings := make(ir.Timings)
	args := bind.NewArgs()
	require.NoError(t, k.Invoke(args, timings))

	assert.Equal(t, 1, k.Calls)
	assert.Same(t, args, k.LastArgs)
	assert.Equal(t, 0.5, timings["loop_x_0"])
}

func TestScriptedKernelError(t *testing.T) {
	k := &ScriptedKernel{Err: errors.New("device lost")}
	err := k.Invoke(bind.NewArgs(), make(ir.Timings))
	require.Error(t, err)
	assert.Equal(t, 1, k.Calls)
}
