package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	def := filepath.Join(dir, "op.cue")
	require.NoError(t, os.WriteFile(def, []byte("operator: x: {}"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/march_forward.yaml")
	require.NoError(t, err)

	assert.Equal(t, "march_forward", s.Name)
	assert.Equal(t, filepath.Join("testdata", "definitions", "march.cue"),
		s.Definition, "the definition resolves relative to the scenario file")
	assert.Equal(t, []int{2, 3}, s.Data["u"].Shape)
	assert.Equal(t, map[string]int{"time": 4}, s.Dims)
	require.Len(t, s.Assertions, 5)
	assert.Equal(t, AssertGridEquals, s.Assertions[0].Type)
	assert.Equal(t, AssertSectionFlops, s.Assertions[3].Type)
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "x"
definition: op.cue
data:
  u: {shape: [2]}
assertion:
  - type: grid_sum
    grid: u
`)
	_, err := LoadScenario(path)
	require.Error(t, err, "a misspelled key must not silently drop assertions")
	assert.Contains(t, err.Error(), "parsing scenario")
}

func TestLoadScenarioValidation(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing name",
			src: `
description: "x"
definition: op.cue
data:
  u: {shape: [2]}
assertions:
  - {type: grid_sum, grid: u}
`,
			want: "name is required",
		},
		{
			name: "missing definition",
			src: `
name: s
description: "x"
data:
  u: {shape: [2]}
assertions:
  - {type: grid_sum, grid: u}
`,
			want: "definition is required",
		},
		{
			name: "definition not found",
			src: `
name: s
description: "x"
definition: absent.cue
data:
  u: {shape: [2]}
assertions:
  - {type: grid_sum, grid: u}
`,
			want: "definition not found",
		},
		{
			name: "no data",
			src: `
name: s
description: "x"
definition: op.cue
assertions:
  - {type: section_count, count: 1}
`,
			want: "data is required",
		},
		{
			name: "values shape mismatch",
			src: `
name: s
description: "x"
definition: op.cue
data:
  u: {shape: [2], values: [1, 2, 3]}
assertions:
  - {type: grid_sum, grid: u}
`,
			want: "has 3 values for shape [2]",
		},
		{
			name: "no assertions",
			src: `
name: s
description: "x"
definition: op.cue
data:
  u: {shape: [2]}
`,
			want: "assertions list is required",
		},
		{
			name: "unknown assertion type",
			src: `
name: s
description: "x"
definition: op.cue
data:
  u: {shape: [2]}
assertions:
  - {type: trace_contains}
`,
			want: "unknown assertion type",
		},
		{
			name: "unknown grid",
			src: `
name: s
description: "x"
definition: op.cue
data:
  u: {shape: [2]}
assertions:
  - {type: grid_equals, grid: v, index: [0], value: 1}
`,
			want: `unknown grid "v"`,
		},
		{
			name: "index rank mismatch",
			src: `
name: s
description: "x"
definition: op.cue
data:
  u: {shape: [2, 2]}
assertions:
  - {type: grid_equals, grid: u, index: [0], value: 1}
`,
			want: "rank 2, got 1 subscripts",
		},
		{
			name: "index out of bounds",
			src: `
name: s
description: "x"
definition: op.cue
data:
  u: {shape: [2]}
assertions:
  - {type: grid_equals, grid: u, index: [5], value: 1}
`,
			want: "outside shape",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeScenario(t, tc.src)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGridSpecGrid(t *testing.T) {
	g := GridSpec{Shape: []int{2, 2}, Fill: 3.0}.Grid()
	assert.Equal(t, []float64{3, 3, 3, 3}, g.Data)

	g = GridSpec{Shape: []int{3}, Values: []float64{1, 2, 3}}.Grid()
	assert.Equal(t, []float64{1, 2, 3}, g.Data)
}
