// Package harness provides scenario-driven conformance testing for
// compiled operators.
//
// A scenario is a YAML file naming an operator definition, the input
// arrays and sizes, and assertions over the final state:
//
//	name: march_forward
//	description: "Each time step increments every point once"
//	definition: ../definitions/march.cue
//	data:
//	  u:
//	    shape: [2, 3]
//	dims:
//	  time: 4
//	assertions:
//	  - type: grid_equals
//	    grid: u
//	    index: [0, 0]
//	    value: 4
//	  - type: section_flops
//	    section: main
//	    flops: 12
//
// # Assertion Types
//
//   - grid_equals: one element of a final array matches a value
//   - grid_sum: the sum over a final array matches a value
//   - section_flops: a summary section accounts the given flop count
//   - section_count: the summary holds exactly N sections
//
// Beyond the scenario's own assertions, every run is checked against a
// fixed set of principles: each instrumented section must report a
// timer reading, the dominant section must surface as "main", resolved
// block sizes must fit their loop extents, and array shapes must
// survive the run unchanged.
//
// # Golden Snapshots
//
// RunWithGolden additionally compares the operator's build layout, its
// parameters, sections and scheduled loop tree, against a golden file
// under testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
