// Package specfile compiles a declarative CUE operator definition into ir
// values. A definition names its dimensions, grids, update equations and
// pipeline options:
//
//	operator: diffusion: {
//		dimensions: {
//			time: {}
//			t:    {parent: "time", period: 2}
//			x:    {}
//		}
//		grids: {
//			u: {dims: ["t", "x"], dtype: "float64"}
//		}
//		equations: [{
//			lhs: {grid: "u", offsets: [1, 0]}
//			rhs: {op: "+", args: [
//				{grid: "u", offsets: [0, -1]},
//				{grid: "u", offsets: [0, 0]},
//				{grid: "u", offsets: [0, 1]},
//			]}
//		}]
//		options: {dle: "blocking"}
//	}
//
// Expressions are structured values, not strings; leaves are grid
// accesses, free symbols or numbers, and interior nodes fold their args
// left to right. Every failure is a CompileError carrying the offending
// field and source position.
package specfile
