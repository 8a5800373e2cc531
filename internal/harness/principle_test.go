package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/operator"
)

// marchRun builds and runs the march scenario, returning the pieces a
// principle check wants, so each test can violate one invariant.
func marchRun(t *testing.T) (*operator.Operator, *Result) {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/march_forward.yaml")
	require.NoError(t, err)
	op, result, err := execute(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "failures: %v", result.Errors)
	return op, result
}

var marchShapes = map[string][]int{"u": {2, 3}}

func TestPrinciplesHoldOnAHealthyRun(t *testing.T) {
	op, result := marchRun(t)
	assert.Empty(t, CheckPrinciples(op, result, marchShapes))
}

func TestPrincipleMissingTimerReading(t *testing.T) {
	op, result := marchRun(t)

	delete(result.Run.Timings, "loop_t_0")

	failures := CheckPrinciples(op, result, marchShapes)
	require.NotEmpty(t, failures)
	assert.Contains(t, failures[0], `section "loop_t_0" has no timer reading`)
}

func TestPrincipleShapeMustSurvive(t *testing.T) {
	op, result := marchRun(t)

	result.Grids["u"] = ir.NewGrid(3, 2)

	failures := CheckPrinciples(op, result, marchShapes)
	require.NotEmpty(t, failures)
	assert.Contains(t, failures[0], `grid "u" changed shape`)
}

func TestPrincipleBlocksFitTheirExtents(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/smooth_blocked.yaml")
	require.NoError(t, err)
	op, result, err := execute(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "failures: %v", result.Errors)

	shapes := map[string][]int{"v": {8, 8}}
	assert.Empty(t, CheckPrinciples(op, result, shapes))

	require.NotEmpty(t, op.Blocks)
	result.Run.Blocks[op.Blocks[0].Name] = 1024

	failures := CheckPrinciples(op, result, shapes)
	require.NotEmpty(t, failures)
	assert.Contains(t, failures[0], "exceeds extent")
}
