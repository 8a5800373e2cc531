package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
}
`

func writeDefinition(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "op.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestInspect(t *testing.T) {
	path := writeDefinition(t, diffusionCUE)

	buf := &bytes.Buffer{}
	cmd := NewInspectCommand(&RootOptions{})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	out := buf.String()

	assert.Contains(t, out, "operator diffusion")
	assert.Contains(t, out, "u: grid rank 2 (out)")
	assert.Contains(t, out, "time: extent")
	assert.Contains(t, out, "x: extent")
	assert.Contains(t, out, "timers: timer sink")
	assert.Contains(t, out, "loop_t_0:")
	assert.Contains(t, out, "for x")
}

func TestInspectMissingFile(t *testing.T) {
	cmd := NewInspectCommand(&RootOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.cue")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInspectMalformedDefinition(t *testing.T) {
	path := writeDefinition(t, `
operator: broken: {
	dimensions: {x: {}}
	grids: {u: {dims: ["y"]}}
	equations: [{lhs: {grid: "u"}, rhs: {num: 1}}]
}
`)

	cmd := NewInspectCommand(&RootOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "compiling definitions")
}
