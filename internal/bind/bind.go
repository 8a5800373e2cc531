package bind

import (
	"errors"
	"fmt"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/loopeng"
)

// Code categorizes argument-validation failures.
type Code string

const (
	// CodeShapeMismatch reports a keyword override whose shape does not
	// exactly match the declared shape.
	CodeShapeMismatch Code = "SHAPE_MISMATCH"
	// CodeExtentMismatch reports a dimension whose resolved limit
	// contradicts an array's extent.
	CodeExtentMismatch Code = "EXTENT_MISMATCH"
	// CodeUnresolved reports an open dimension no array or keyword fixed.
	CodeUnresolved Code = "UNRESOLVED_DIMENSION"
	// CodeMissingData reports a tensor parameter with no bound array.
	CodeMissingData Code = "MISSING_DATA"
)

// ArgumentError is a call-time validation failure. It carries the
// parameter or dimension at fault with expected and actual values, and
// always aborts binding before any native execution.
type ArgumentError struct {
	Code     Code
	Param    string
	Dim      string
	Expected any
	Actual   any
}

func (e *ArgumentError) Error() string {
	ctx := e.Param
	if e.Dim != "" {
		ctx = fmt.Sprintf("%s (dimension %s)", e.Param, e.Dim)
	}
	if e.Expected != nil || e.Actual != nil {
		return fmt.Sprintf("%s: %s: expected %v, got %v", e.Code, ctx, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: %s", e.Code, ctx)
}

// IsArgumentError reports whether err is an argument-validation failure.
func IsArgumentError(err error) bool {
	var ae *ArgumentError
	return errors.As(err, &ae)
}

// Request carries everything the binder needs for one call.
type Request struct {
	// Params is the operator's declared parameter list, fixed at build
	// time. Blocking parameters appear here as dimension-size parameters.
	Params []ir.Parameter
	// Blocks describes the loop engine's blocking parameters.
	Blocks []loopeng.BlockParam
	// Data holds positional arrays, matched to tensor parameters in
	// declaration order.
	Data []*ir.Grid
	// KW holds keyword overrides: *ir.Grid for data parameters, int for
	// dimension sizes.
	KW map[string]ir.Value
	// Extra is appended verbatim after all declared parameters (the
	// profiling sink required by the native signature).
	Extra []Pair
}

// Binding is the binder's output: the complete ordered argument mapping
// and the resolved extent of every open dimension.
type Binding struct {
	Args     *Args
	DimSizes map[*ir.Dimension]int
	// Autotune reports whether autotuning is still permitted: a fixed
	// user-supplied block size disables it.
	Autotune bool
}

// Bind validates and resolves one call's arguments. On any validation
// failure it returns an ArgumentError and no partial binding escapes.
func Bind(req Request) (*Binding, error) {
	args := NewArgs()
	dimSizes := make(map[*ir.Dimension]int)
	var dimOrder []*ir.Dimension
	setSize := func(d *ir.Dimension, v int) {
		if _, ok := dimSizes[d]; !ok {
			dimOrder = append(dimOrder, d)
		}
		dimSizes[d] = v
	}
	autotune := true

	// Bind data parameters: positional first, then keyword overrides,
	// which replace the binding wholesale after an exact shape check.
	grids := make(map[string]*ir.Grid)
	pos := 0
	for _, p := range req.Params {
		if p.Kind != ir.TensorParam {
			continue
		}
		var g *ir.Grid
		if pos < len(req.Data) {
			g = req.Data[pos]
		}
		pos++
		if over, ok := req.KW[p.Name]; ok {
			og, ok := over.(*ir.Grid)
			if !ok {
				return nil, &ArgumentError{Code: CodeShapeMismatch, Param: p.Name,
					Expected: "array", Actual: fmt.Sprintf("%T", over)}
			}
			if g != nil && !shapeEqual(g.Shape, og.Shape) {
				return nil, &ArgumentError{Code: CodeShapeMismatch, Param: p.Name,
					Expected: g.Shape, Actual: og.Shape}
			}
			g = og
		}
		if g == nil {
			return nil, &ArgumentError{Code: CodeMissingData, Param: p.Name}
		}
		if len(g.Shape) != len(p.Tensor.Dims) {
			return nil, &ArgumentError{Code: CodeShapeMismatch, Param: p.Name,
				Expected: len(p.Tensor.Dims), Actual: len(g.Shape)}
		}
		grids[p.Name] = g
	}

	// Infer loop extents from data shapes, parameter by parameter in
	// declaration order.
	for _, p := range req.Params {
		if p.Kind != ir.TensorParam {
			continue
		}
		g := grids[p.Name]
		for i, d := range p.Tensor.Dims {
			if d.IsOpen() {
				if kw, ok := req.KW[d.Name]; ok {
					if limit, ok := kw.(int); ok {
						setSize(d, limit)
					}
				}
				if limit, ok := dimSizes[d]; ok {
					// A buffered axis is a bounded ring, not a fixed data
					// axis; size relationships across its slots are
					// deliberately not constrained here.
					if !d.IsBuffered() && limit > g.Shape[i] {
						return nil, &ArgumentError{Code: CodeExtentMismatch,
							Param: p.Name, Dim: d.Name,
							Expected: fmt.Sprintf("<= %d", g.Shape[i]), Actual: limit}
					}
				} else {
					setSize(d, g.Shape[i])
				}
			} else if !d.IsBuffered() && d.Size != g.Shape[i] {
				return nil, &ArgumentError{Code: CodeExtentMismatch,
					Param: p.Name, Dim: d.Name,
					Expected: d.Size, Actual: g.Shape[i]}
			}
		}
	}

	// Open dimensions that index no array (parents of buffered axes) may
	// still be fixed by keyword.
	for _, p := range req.Params {
		if p.Kind != ir.DimParam || p.Dim == nil {
			continue
		}
		if _, ok := dimSizes[p.Dim]; ok {
			continue
		}
		if kw, ok := req.KW[p.Name]; ok {
			if limit, ok := kw.(int); ok {
				setSize(p.Dim, limit)
			}
		}
	}

	// Propagate resolved buffered extents to parents that have none yet.
	for _, d := range dimOrder {
		if d.IsBuffered() {
			if _, ok := dimSizes[d.Parent]; !ok {
				setSize(d.Parent, dimSizes[d])
			}
		}
	}

	// Resolve blocking parameters.
	blockVals := make(map[string]int, len(req.Blocks))
	for _, bp := range req.Blocks {
		extent, ok := dimSizes[bp.Dim]
		if !ok {
			extent = bp.Dim.Size
		}
		if extent == 0 {
			return nil, &ArgumentError{Code: CodeUnresolved, Param: bp.Name, Dim: bp.Dim.Name}
		}
		switch {
		case bp.Value != 0:
			blockVals[bp.Name] = bp.Value
			// User-pinned block size: nothing left to tune.
			autotune = false
		case bp.Derive != nil:
			blockVals[bp.Name] = bp.Derive(extent)
		default:
			blockVals[bp.Name] = extent
		}
	}

	// Emit the final argument mapping in parameter order.
	for _, p := range req.Params {
		switch p.Kind {
		case ir.TensorParam:
			args.Set(p.Name, grids[p.Name])
		case ir.DimParam:
			if v, ok := blockVals[p.Name]; ok {
				args.Set(p.Name, v)
				continue
			}
			if p.Dim != nil {
				if v, ok := dimSizes[p.Dim]; ok {
					args.Set(p.Name, v)
					continue
				}
				if p.Dim.Size != 0 {
					args.Set(p.Name, p.Dim.Size)
					continue
				}
			}
			return nil, &ArgumentError{Code: CodeUnresolved, Param: p.Name, Dim: p.Name}
		}
	}
	for _, extra := range req.Extra {
		args.Set(extra.Name, extra.Value)
	}

	return &Binding{Args: args, DimSizes: dimSizes, Autotune: autotune}, nil
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
