package perf

import (
	"fmt"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/rewrite"
	"github.com/gridforge/stencil/internal/visit"
)

// IterSpan is a detached copy of one loop's traversal data. Holding copies
// instead of tree nodes keeps the profile valid after the loop engine has
// rewritten the instrumented subtrees.
type IterSpan struct {
	Dim                  *ir.Dimension
	Limit                int
	OffsetMin, OffsetMax int
}

// extent resolves the trip count against the bound dimension sizes.
func (s IterSpan) extent(sizes map[string]int) int {
	resolved := s.Limit
	if resolved == 0 {
		resolved = sizes[s.Dim.Root().Name]
	}
	it := ir.Iteration{Dim: s.Dim, Limit: s.Limit, OffsetMin: s.OffsetMin, OffsetMax: s.OffsetMax}
	return it.Extent(resolved)
}

// span resolves the full data extent along this loop's dimension, offsets
// not subtracted. A buffered dimension contributes its ring period.
func (s IterSpan) span(sizes map[string]int) int {
	if s.Dim.Size != 0 {
		return s.Dim.Size
	}
	return sizes[s.Dim.Root().Name]
}

// SectionProfile is the static cost model of one timed section: operation
// and access counts per iteration point, plus the loop nest they run under.
type SectionProfile struct {
	Name     string
	Ops      int
	Accesses int
	Iters    []IterSpan
}

// iterspace is the number of points the section visits per invocation.
func (p *SectionProfile) iterspace(sizes map[string]int) int {
	n := 1
	for _, s := range p.Iters {
		n *= s.extent(sizes)
	}
	return n
}

// dataspace is the number of elements spanned by the section's nest,
// ignoring boundary offsets.
func (p *SectionProfile) dataspace(sizes map[string]int) int {
	n := 1
	for _, s := range p.Iters {
		n *= s.span(sizes)
	}
	return n
}

// Profiler accumulates the section profiles discovered during
// instrumentation, in tree order.
type Profiler struct {
	Sections []*SectionProfile
}

// Instrument wraps every outermost perfect iteration nest of body in a
// named Section node and records its static profile. The returned body
// shares unwrapped nodes with the input.
func Instrument(body []ir.Node) (*Profiler, []ir.Node) {
	p := &Profiler{}
	out := make([]ir.Node, 0, len(body))
	for _, n := range body {
		out = append(out, p.instrument(n))
	}
	return p, out
}

func (p *Profiler) instrument(n ir.Node) ir.Node {
	switch t := n.(type) {
	case *ir.Iteration:
		if visit.IsPerfect(t) {
			return p.wrap(t)
		}
		body := make([]ir.Node, len(t.Body))
		for i, c := range t.Body {
			body[i] = p.instrument(c)
		}
		cp := *t
		cp.Body = body
		return &cp
	case *ir.List:
		cp := *t
		cp.Body = make([]ir.Node, len(t.Body))
		for i, c := range t.Body {
			cp.Body[i] = p.instrument(c)
		}
		return &cp
	case *ir.Section:
		return t
	default:
		return n
	}
}

func (p *Profiler) wrap(it *ir.Iteration) ir.Node {
	prof := &SectionProfile{
		Name: fmt.Sprintf("loop_%s_%d", it.Dim.Name, len(p.Sections)),
	}
	for cur := it; ; {
		prof.Iters = append(prof.Iters, IterSpan{
			Dim:       cur.Dim,
			Limit:     cur.Limit,
			OffsetMin: cur.OffsetMin,
			OffsetMax: cur.OffsetMax,
		})
		next, ok := innerIteration(cur)
		if !ok {
			break
		}
		cur = next
	}
	eqs := sectionEquations(it)
	prof.Ops = rewrite.EstimateOps(eqs)
	prof.Accesses = rewrite.EstimateAccesses(eqs)
	p.Sections = append(p.Sections, prof)
	return &ir.Section{Name: prof.Name, Body: it}
}

func innerIteration(it *ir.Iteration) (*ir.Iteration, bool) {
	if len(it.Body) == 1 {
		if inner, ok := it.Body[0].(*ir.Iteration); ok {
			return inner, true
		}
	}
	return nil, false
}

func sectionEquations(n ir.Node) []*ir.Assign {
	var eqs []*ir.Assign
	for _, e := range visit.FindExpressions(n) {
		eqs = append(eqs, e.Eq)
	}
	return eqs
}
