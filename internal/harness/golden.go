package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/operator"
)

// BuildSnapshot renders the deterministic build layout of an operator:
// its parameter list, instrumented sections and scheduled loop tree.
// Timings and identifiers are excluded so snapshots are stable across
// runs.
func BuildSnapshot(op *operator.Operator) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "operator %s\n", op.Name)

	b.WriteString("parameters:\n")
	for _, p := range op.Params {
		switch p.Kind {
		case ir.TensorParam:
			role := "in"
			if p.IsOutput {
				role = "out"
			}
			fmt.Fprintf(&b, "  %s: grid rank %d (%s)\n", p.Name, len(p.Tensor.Dims), role)
		case ir.DimParam:
			fmt.Fprintf(&b, "  %s: extent\n", p.Name)
		case ir.TimerParam:
			fmt.Fprintf(&b, "  %s: timer sink\n", p.Name)
		}
	}

	b.WriteString("sections:\n")
	for _, s := range op.Sections() {
		fmt.Fprintf(&b, "  %s: ops=%d accesses=%d\n", s.Name, s.Ops, s.Accesses)
	}

	b.WriteString("tree:\n")
	for _, n := range op.Prog.Body {
		b.WriteString(ir.Dump(n))
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and additionally compares the
// operator's build layout against testdata/golden/<name>.golden.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	op, result, err := execute(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, BuildSnapshot(op))

	return result, nil
}
