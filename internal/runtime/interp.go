package runtime

import (
	"fmt"
	"time"

	"github.com/gridforge/stencil/internal/bind"
	"github.com/gridforge/stencil/internal/ir"
)

// executor holds the mutable state of one invocation. Loop indices are
// keyed by root dimension name so a buffered axis and its parent share one
// counter; block bases are keyed by blocking parameter name.
type executor struct {
	args     *bind.Args
	timings  ir.Timings
	routines map[string]*ir.Routine

	indices map[string]int
	scalars map[string]float64
	scratch map[string]*ir.Grid
	bases   map[string]int
}

func (ex *executor) exec(n ir.Node) error {
	switch t := n.(type) {
	case *ir.List:
		for _, c := range t.Header {
			if err := ex.exec(c); err != nil {
				return err
			}
		}
		for _, c := range t.Body {
			if err := ex.exec(c); err != nil {
				return err
			}
		}
		for _, c := range t.Footer {
			if err := ex.exec(c); err != nil {
				return err
			}
		}
		return nil
	case *ir.Section:
		start := time.Now()
		err := ex.exec(t.Body)
		ex.timings[t.Name] += time.Since(start).Seconds()
		return err
	case *ir.Iteration:
		return ex.iterate(t)
	case *ir.Expression:
		return ex.assign(t.Eq)
	case *ir.Element:
		return ex.element(t)
	case *ir.Call:
		r, ok := ex.routines[t.Name]
		if !ok {
			return fmt.Errorf("call to unknown routine %q", t.Name)
		}
		for _, c := range r.Body {
			if err := ex.exec(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown node %T", n)
	}
}

func (ex *executor) iterate(it *ir.Iteration) error {
	resolved := it.Limit
	if resolved == 0 {
		resolved = ex.args.Int(it.Dim.Root().Name)
		if resolved == 0 {
			return fmt.Errorf("extent of dimension %q never resolved", it.Dim.Root().Name)
		}
	}
	start, end := it.Bounds(resolved)
	root := it.Dim.Root().Name

	if it.Block != nil {
		size := ex.args.Int(it.Block.Param)
		if size <= 0 {
			return fmt.Errorf("block parameter %q never resolved", it.Block.Param)
		}
		switch it.Block.Role {
		case ir.BlockOuter:
			for base := start; base < end; base += size {
				ex.bases[it.Block.Param] = base
				if err := ex.body(it); err != nil {
					return err
				}
			}
			return nil
		default: // BlockInner
			lo := ex.bases[it.Block.Param]
			hi := lo + size
			if hi > end {
				hi = end
			}
			for i := lo; i < hi; i++ {
				ex.indices[root] = i
				if err := ex.body(it); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if it.Dim.Reverse || it.Dim.Root().Reverse {
		for i := end - 1; i >= start; i-- {
			ex.indices[root] = i
			if err := ex.body(it); err != nil {
				return err
			}
		}
		return nil
	}
	for i := start; i < end; i++ {
		ex.indices[root] = i
		if err := ex.body(it); err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) body(it *ir.Iteration) error {
	for _, c := range it.Body {
		if err := ex.exec(c); err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) element(el *ir.Element) error {
	switch el.Kind {
	case ir.DeclStack, ir.DeclHeapAlloc:
		shape := make([]int, len(el.Tensor.Dims))
		for i, d := range el.Tensor.Dims {
			if d.Size != 0 {
				shape[i] = d.Size
				continue
			}
			shape[i] = ex.args.Int(d.Root().Name)
			if shape[i] == 0 {
				return fmt.Errorf("scratch %q: extent of %q never resolved", el.Tensor.Name, d.Name)
			}
		}
		ex.scratch[el.Tensor.Name] = ir.NewGrid(shape...)
		return nil
	case ir.DeclHeapFree:
		delete(ex.scratch, el.Tensor.Name)
		return nil
	default:
		return fmt.Errorf("unknown element kind %d", el.Kind)
	}
}

func (ex *executor) assign(eq *ir.Assign) error {
	v, err := ex.eval(eq.RHS)
	if err != nil {
		return err
	}
	if eq.IsScalar() {
		ex.scalars[eq.LHS.Tensor.Name] = v
		return nil
	}
	g, idx, err := ex.locate(eq.LHS)
	if err != nil {
		return err
	}
	g.Data[idx] = v
	return nil
}

func (ex *executor) eval(e ir.Expr) (float64, error) {
	switch t := e.(type) {
	case *ir.Num:
		return t.Val, nil
	case *ir.Sym:
		v, ok := ex.scalars[t.Name]
		if !ok {
			return 0, fmt.Errorf("unresolved symbol %q", t.Name)
		}
		return v, nil
	case *ir.Access:
		if t.Tensor.IsScalar() {
			v, ok := ex.scalars[t.Tensor.Name]
			if !ok {
				return 0, fmt.Errorf("unresolved scalar %q", t.Tensor.Name)
			}
			return v, nil
		}
		g, idx, err := ex.locate(t)
		if err != nil {
			return 0, err
		}
		return g.Data[idx], nil
	case *ir.BinOp:
		l, err := ex.eval(t.L)
		if err != nil {
			return 0, err
		}
		r, err := ex.eval(t.R)
		if err != nil {
			return 0, err
		}
		switch t.Op {
		case ir.Add:
			return l + r, nil
		case ir.Sub:
			return l - r, nil
		case ir.Mul:
			return l * r, nil
		case ir.Div:
			return l / r, nil
		default:
			return 0, fmt.Errorf("unknown operator %q", t.Op)
		}
	default:
		return 0, fmt.Errorf("unknown expression %T", e)
	}
}

// locate resolves an access to its backing grid and flat offset. Buffered
// axes wrap modulo the grid's extent along that axis.
func (ex *executor) locate(a *ir.Access) (*ir.Grid, int, error) {
	g := ex.scratch[a.Tensor.Name]
	if g == nil {
		g = ex.args.Grid(a.Tensor.Name)
	}
	if g == nil {
		return nil, 0, fmt.Errorf("no data bound for tensor %q", a.Tensor.Name)
	}
	if len(g.Shape) != len(a.Tensor.Dims) {
		return nil, 0, fmt.Errorf("tensor %q: rank %d data bound to rank %d tensor",
			a.Tensor.Name, len(g.Shape), len(a.Tensor.Dims))
	}
	flat := 0
	for i, d := range a.Tensor.Dims {
		x, ok := ex.indices[d.Root().Name]
		if !ok {
			return nil, 0, fmt.Errorf("tensor %q indexed outside a loop over %q", a.Tensor.Name, d.Name)
		}
		x += a.Offsets[i]
		if d.IsBuffered() {
			x = ((x % g.Shape[i]) + g.Shape[i]) % g.Shape[i]
		}
		if x < 0 || x >= g.Shape[i] {
			return nil, 0, fmt.Errorf("tensor %q: index %d out of range on axis %q", a.Tensor.Name, x, d.Name)
		}
		flat = flat*g.Shape[i] + x
	}
	return g, flat, nil
}
