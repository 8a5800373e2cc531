// Package testutil provides deterministic fixtures for operator tests:
// canned grids and a scripted toolchain that replaces real kernel
// execution with fixed timings.
package testutil

import "github.com/gridforge/stencil/internal/ir"

// Uniform returns a grid with every element set to v.
func Uniform(v float64, shape ...int) *ir.Grid {
	g := ir.NewGrid(shape...)
	g.Fill(v)
	return g
}

// Ramp returns a grid whose flat elements count upward from 0, so any
// reordering or skipped point shows up in comparisons.
func Ramp(shape ...int) *ir.Grid {
	g := ir.NewGrid(shape...)
	for i := range g.Data {
		g.Data[i] = float64(i)
	}
	return g
}
