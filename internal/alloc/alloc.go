package alloc

import (
	"fmt"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/visit"
)

// InconsistencyError reports a variable whose storage resolution is
// contradictory across scopes. It indicates a loop-engine classification
// bug and is fatal at build time.
type InconsistencyError struct {
	Tensor string
	Reason string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent declaration for %q: %s", e.Tensor, e.Reason)
}

// Insert augments the tree (and every helper routine) with declaration
// nodes. The input trees are not mutated; rebuilt trees are returned.
func Insert(body ir.Node, routines []*ir.Routine) (ir.Node, []*ir.Routine, error) {
	scopes, err := resolveScopes(body, routines)
	if err != nil {
		return nil, nil, err
	}

	repl := make(map[ir.Node]ir.Node)

	// Stack allocations keyed by site, in scope-discovery order.
	var siteOrder []*ir.Iteration
	onStack := make(map[*ir.Iteration][]*ir.Tensor)
	stackSite := make(map[*ir.Tensor]*ir.Iteration)

	var onHeap []*ir.Tensor
	heapSeen := make(map[*ir.Tensor]bool)

	for _, s := range scopes {
		e := s.Node.(*ir.Expression)
		target := e.Eq.LHS.Tensor
		switch {
		case target.IsScalar():
			// Declared inline at its use, no hoisting.
			repl[e] = &ir.Expression{Eq: e.Eq, Local: true}
		case target.Storage == ir.External:
			// Bound at call time, nothing to declare.
		case target.Storage == ir.Stack:
			site, err := stackSiteFor(s.Iters, target)
			if err != nil {
				return nil, nil, err
			}
			if prev, ok := stackSite[target]; ok {
				if prev != site {
					return nil, nil, &InconsistencyError{
						Tensor: target.Name,
						Reason: "stack placement differs across scopes",
					}
				}
				continue
			}
			stackSite[target] = site
			if _, ok := onStack[site]; !ok {
				siteOrder = append(siteOrder, site)
			}
			onStack[site] = append(onStack[site], target)
		default:
			if !heapSeen[target] {
				heapSeen[target] = true
				onHeap = append(onHeap, target)
			}
		}
	}

	// Stack declarations precede the site's original body, in the order
	// scopes were first discovered.
	for _, site := range siteOrder {
		decls := make([]ir.Node, 0, len(onStack[site]))
		for _, tens := range onStack[site] {
			decls = append(decls, &ir.Element{Kind: ir.DeclStack, Tensor: tens})
		}
		next := *site
		next.Body = append(decls, site.Body...)
		repl[site] = &next
	}

	out := visit.Transform(body, repl)
	outRoutines := make([]*ir.Routine, len(routines))
	for i, r := range routines {
		outRoutines[i] = visit.TransformRoutine(r, repl)
	}

	// Heap allocations bracket the entire routine body: one alloc before
	// any usage, one matching free after all usage.
	if len(onHeap) > 0 {
		header := make([]ir.Node, 0, len(onHeap))
		footer := make([]ir.Node, 0, len(onHeap))
		for _, tens := range onHeap {
			header = append(header, &ir.Element{Kind: ir.DeclHeapAlloc, Tensor: tens})
			footer = append(footer, &ir.Element{Kind: ir.DeclHeapFree, Tensor: tens})
		}
		out = &ir.List{Header: header, Body: []ir.Node{out}, Footer: footer}
	}
	return out, outRoutines, nil
}

// resolveScopes enumerates every expression scope in the main body and in
// called routines. A routine's scopes are grafted onto the iteration chain
// enclosing its call site so the whole pass sees one scope universe.
func resolveScopes(body ir.Node, routines []*ir.Routine) ([]visit.Scope, error) {
	table := make(map[string]*ir.Routine, len(routines))
	for _, r := range routines {
		table[r.Name] = r
	}

	var out []visit.Scope
	for _, s := range visit.FindScopes(body, nil) {
		call, ok := s.Node.(*ir.Call)
		if !ok {
			out = append(out, s)
			continue
		}
		routine, ok := table[call.Name]
		if !ok {
			return nil, fmt.Errorf("alloc: call to unknown routine %q", call.Name)
		}
		for _, n := range routine.Body {
			for _, inner := range visit.FindScopes(n, s.Iters) {
				if _, nested := inner.Node.(*ir.Call); nested {
					return nil, fmt.Errorf("alloc: nested call inside routine %q", routine.Name)
				}
				out = append(out, inner)
			}
		}
	}
	return out, nil
}

// stackSiteFor finds the allocation site for a stack tensor: walking the
// chain from the outside, collect iterations that do not range over the
// tensor's own indexing dimensions and stop at the first that does; the
// deepest collected iteration is the site. Stopping at the first break
// keeps the declaration from splitting a previously merged loop run.
func stackSiteFor(chain []*ir.Iteration, target *ir.Tensor) (*ir.Iteration, error) {
	var site *ir.Iteration
	for _, it := range chain {
		if target.Indexes(it.Dim) {
			break
		}
		site = it
	}
	if site == nil {
		return nil, &InconsistencyError{
			Tensor: target.Name,
			Reason: "no enclosing iteration free of its indexing dimensions",
		}
	}
	return site, nil
}
