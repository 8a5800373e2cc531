package harness

import (
	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/operator"
)

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when every assertion and principle held.
	Pass bool
	// Errors lists the assertion and principle failures. Empty when
	// Pass is true.
	Errors []string
	// Grids holds the final state of every bound array, keyed by
	// parameter name.
	Grids map[string]*ir.Grid
	// Run carries the timings, summary, resolved sizes and block shape
	// of the execution.
	Run *operator.Run
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true, Grids: make(map[string]*ir.Grid)}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
