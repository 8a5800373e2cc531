package rewrite

import (
	"fmt"
	"strings"

	"github.com/gridforge/stencil/internal/ir"
)

// State is the symbolic engine's output: optimized clusters plus the
// storage roles the binder and autotuner need.
type State struct {
	Clusters []*ir.Cluster
	// Input lists every distinct tensor referenced, first-seen order.
	// The scheduler derives its dimension ordering from these.
	Input []*ir.Tensor
	// Output lists the externally visible tensors written by the
	// computation. The autotuner clones their buffers before trial runs.
	Output []*ir.Tensor
	Mode   string
}

// Engine produces optimized clusters from raw update equations.
type Engine interface {
	Rewrite(eqs []*ir.Assign, mode string) (*State, error)
}

// TypeError reports equations that disagree on the numeric element type.
// It is fatal at build time.
type TypeError struct {
	Types []ir.DType
}

func (e *TypeError) Error() string {
	names := make([]string, len(e.Types))
	for i, t := range e.Types {
		names[i] = t.String()
	}
	return fmt.Sprintf("stencil types mismatch: %s", strings.Join(names, ", "))
}

// New returns the built-in engine. It recognizes modes "noop" and "basic";
// both group without transforming the math.
func New() Engine { return &basicEngine{} }

type basicEngine struct{}

func (basicEngine) Rewrite(eqs []*ir.Assign, mode string) (*State, error) {
	if len(eqs) == 0 {
		return nil, fmt.Errorf("rewrite: no equations")
	}
	if _, err := TargetType(eqs); err != nil {
		return nil, err
	}

	state := &State{Mode: mode}

	// Group adjacent equations sharing iteration-offset structure.
	var cur *ir.Cluster
	var curSig string
	for _, eq := range eqs {
		sig := offsetSignature(eq)
		if cur == nil || sig != curSig {
			cur = &ir.Cluster{}
			curSig = sig
			state.Clusters = append(state.Clusters, cur)
		}
		cur.Exprs = append(cur.Exprs, eq)
	}

	seen := make(map[*ir.Tensor]bool)
	wrote := make(map[*ir.Tensor]bool)
	for _, eq := range eqs {
		for _, tens := range eq.Tensors() {
			if !seen[tens] {
				seen[tens] = true
				state.Input = append(state.Input, tens)
			}
		}
		target := eq.LHS.Tensor
		if target.Storage == ir.External && !target.IsScalar() && !wrote[target] {
			wrote[target] = true
			state.Output = append(state.Output, target)
		}
	}
	return state, nil
}

// TargetType returns the common element type of all equation targets, or a
// TypeError when they disagree.
func TargetType(eqs []*ir.Assign) (ir.DType, error) {
	var types []ir.DType
	seen := make(map[ir.DType]bool)
	for _, eq := range eqs {
		dt := eq.LHS.Tensor.DType
		if !seen[dt] {
			seen[dt] = true
			types = append(types, dt)
		}
	}
	if len(types) != 1 {
		return 0, &TypeError{Types: types}
	}
	return types[0], nil
}

// offsetSignature canonicalizes an equation's iteration-offset structure:
// the ordered root dimensions it touches and the offset set per dimension.
func offsetSignature(eq *ir.Assign) string {
	m := eq.IndexOffsets()
	var b strings.Builder
	for _, d := range m.Dims() {
		b.WriteString(d.Root().Name)
		b.WriteByte(':')
		for _, off := range m.Values(d) {
			fmt.Fprintf(&b, "%d,", off)
		}
		b.WriteByte(';')
	}
	return b.String()
}
