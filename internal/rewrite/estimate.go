package rewrite

import "github.com/gridforge/stencil/internal/ir"

// EstimateOps returns the arithmetic operation count of one evaluation of
// the given equations, per iteration point.
func EstimateOps(eqs []*ir.Assign) int {
	total := 0
	for _, eq := range eqs {
		total += countOps(eq.RHS)
	}
	return total
}

func countOps(e ir.Expr) int {
	if bin, ok := e.(*ir.BinOp); ok {
		return 1 + countOps(bin.L) + countOps(bin.R)
	}
	return 0
}

// EstimateAccesses returns the number of distinct memory touches per
// iteration point: unique (tensor, offsets) element accesses including the
// written targets.
func EstimateAccesses(eqs []*ir.Assign) int {
	seen := make(map[string]bool)
	for _, eq := range eqs {
		for _, acc := range eq.Accesses() {
			if acc.Tensor.IsScalar() {
				continue
			}
			key := ir.ExprString(acc)
			seen[key] = true
		}
	}
	return len(seen)
}
