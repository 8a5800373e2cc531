package harness

import (
	"fmt"

	"github.com/gridforge/stencil/internal/operator"
)

// CheckPrinciples evaluates the invariants every run must satisfy, no
// matter what the scenario itself asserts:
//
//   - every instrumented section reports a timer reading
//   - the dominant section surfaces as "main" in the summary
//   - resolved block sizes never exceed the extent they tile
//   - array shapes survive the run unchanged
//
// shapes holds the pre-run shape of every bound array.
func CheckPrinciples(op *operator.Operator, result *Result, shapes map[string][]int) []string {
	var failures []string

	for _, s := range op.Sections() {
		if _, ok := result.Run.Timings[s.Name]; !ok {
			failures = append(failures,
				fmt.Sprintf("principle: section %q has no timer reading", s.Name))
		}
	}

	if len(op.Sections()) > 0 {
		if _, ok := result.Run.Summary.Sections["main"]; !ok {
			failures = append(failures, "principle: no section surfaced as main")
		}
	}

	for _, bp := range op.Blocks {
		size := result.Run.Blocks[bp.Name]
		extent := result.Run.Sizes[bp.Dim.Name]
		if extent > 0 && size > extent {
			failures = append(failures,
				fmt.Sprintf("principle: block %s=%d exceeds extent %s=%d",
					bp.Name, size, bp.Dim.Name, extent))
		}
	}

	for name, want := range shapes {
		got := result.Grids[name].Shape
		if !shapeEqual(got, want) {
			failures = append(failures,
				fmt.Sprintf("principle: grid %q changed shape from %v to %v", name, want, got))
		}
	}

	return failures
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
