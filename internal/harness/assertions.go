package harness

import (
	"fmt"
	"math"
)

// Assertion validates one aspect of a finished run.
type Assertion struct {
	// Type selects the assertion:
	//   - grid_equals: one element of a final array matches Value
	//   - grid_sum: the element sum of a final array matches Value
	//   - section_flops: a summary section accounts Flops operations
	//   - section_count: the summary holds exactly Count sections
	Type string `yaml:"type"`

	// Grid names the array (grid_equals, grid_sum).
	Grid string `yaml:"grid,omitempty"`

	// Index is the multi-index of the element (grid_equals).
	Index []int `yaml:"index,omitempty"`

	// Value is the expected element or sum (grid_equals, grid_sum).
	Value float64 `yaml:"value,omitempty"`

	// Tolerance bounds the accepted absolute error. Zero means 1e-9.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Section names the summary section (section_flops).
	Section string `yaml:"section,omitempty"`

	// Flops is the expected operation count (section_flops).
	Flops int `yaml:"flops,omitempty"`

	// Count is the expected section count (section_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertGridEquals   = "grid_equals"
	AssertGridSum      = "grid_sum"
	AssertSectionFlops = "section_flops"
	AssertSectionCount = "section_count"
)

func validateAssertion(index int, a *Assertion, data map[string]GridSpec) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertGridEquals:
		if a.Grid == "" {
			return fmt.Errorf("assertions[%d]: grid is required for grid_equals", index)
		}
		spec, ok := data[a.Grid]
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown grid %q", index, a.Grid)
		}
		if len(a.Index) != len(spec.Shape) {
			return fmt.Errorf("assertions[%d]: grid %q has rank %d, got %d subscripts",
				index, a.Grid, len(spec.Shape), len(a.Index))
		}
		for axis, x := range a.Index {
			if x < 0 || x >= spec.Shape[axis] {
				return fmt.Errorf("assertions[%d]: index %v outside shape %v", index, a.Index, spec.Shape)
			}
		}
	case AssertGridSum:
		if a.Grid == "" {
			return fmt.Errorf("assertions[%d]: grid is required for grid_sum", index)
		}
		if _, ok := data[a.Grid]; !ok {
			return fmt.Errorf("assertions[%d]: unknown grid %q", index, a.Grid)
		}
	case AssertSectionFlops:
		if a.Section == "" {
			return fmt.Errorf("assertions[%d]: section is required for section_flops", index)
		}
	case AssertSectionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// EvaluateAssertions checks every assertion against the result and
// returns the failures. The result is not mutated.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if msg := evaluateAssertion(result, a); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) string {
	tol := a.Tolerance
	if tol == 0 {
		tol = 1e-9
	}
	switch a.Type {
	case AssertGridEquals:
		g := result.Grids[a.Grid]
		got := g.At(a.Index...)
		if math.Abs(got-a.Value) > tol {
			return fmt.Sprintf("%s%v = %g, want %g", a.Grid, a.Index, got, a.Value)
		}
	case AssertGridSum:
		g := result.Grids[a.Grid]
		var sum float64
		for _, v := range g.Data {
			sum += v
		}
		if math.Abs(sum-a.Value) > tol {
			return fmt.Sprintf("sum(%s) = %g, want %g", a.Grid, sum, a.Value)
		}
	case AssertSectionFlops:
		m, ok := result.Run.Summary.Sections[a.Section]
		if !ok {
			return fmt.Sprintf("no section %q in the summary", a.Section)
		}
		if m.Flops != a.Flops {
			return fmt.Sprintf("section %q accounts %d flops, want %d", a.Section, m.Flops, a.Flops)
		}
	case AssertSectionCount:
		if got := len(result.Run.Summary.Sections); got != a.Count {
			return fmt.Sprintf("summary holds %d sections, want %d", got, a.Count)
		}
	}
	return ""
}
