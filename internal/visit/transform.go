package visit

import "github.com/gridforge/stencil/internal/ir"

// Transform reconstructs a tree from a replacement map. A node mapped to a
// new node is substituted and the rebuild continues into the replacement's
// children, so a pass may independently replace a node and nodes beneath
// it. A node mapped to nil is removed from its parent's sequence. Nodes
// absent from the map are rebuilt only if a descendant changed, so
// untouched subtrees keep their identity.
//
// Replacement values must be fresh nodes, never keys of the same map.
func Transform(n ir.Node, repl map[ir.Node]ir.Node) ir.Node {
	if n == nil {
		return nil
	}
	if r, ok := repl[n]; ok {
		if r == nil {
			return nil
		}
		n = r
	}
	switch v := n.(type) {
	case *ir.List:
		header, h := transformList(v.Header, repl)
		body, b := transformList(v.Body, repl)
		footer, f := transformList(v.Footer, repl)
		if !h && !b && !f {
			return v
		}
		return &ir.List{Header: header, Body: body, Footer: footer}
	case *ir.Section:
		body := Transform(v.Body, repl)
		if body == v.Body {
			return v
		}
		return &ir.Section{Name: v.Name, Body: body}
	case *ir.Iteration:
		body, changed := transformList(v.Body, repl)
		if !changed {
			return v
		}
		out := *v
		out.Body = body
		return &out
	default:
		return n
	}
}

// TransformRoutine rebuilds a helper routine's body from the same
// replacement map used for the main tree.
func TransformRoutine(r *ir.Routine, repl map[ir.Node]ir.Node) *ir.Routine {
	body, changed := transformList(r.Body, repl)
	if !changed {
		return r
	}
	return &ir.Routine{Name: r.Name, Body: body}
}

func transformList(nodes []ir.Node, repl map[ir.Node]ir.Node) ([]ir.Node, bool) {
	changed := false
	out := make([]ir.Node, 0, len(nodes))
	for _, c := range nodes {
		nc := Transform(c, repl)
		if nc != c {
			changed = true
		}
		if nc != nil {
			out = append(out, nc)
		}
	}
	if !changed {
		return nodes, false
	}
	return out, true
}

// MergeOuterIterations merges adjacent iteration trees whose outermost
// governing dimension, bounds and offsets are identical, concatenating
// their bodies in order. Merging recurses into the combined body, so inner
// loops brought together by an outer merge are merged in turn.
func MergeOuterIterations(nodes []ir.Node) []ir.Node {
	out := make([]ir.Node, 0, len(nodes))
	for _, n := range nodes {
		it, ok := n.(*ir.Iteration)
		if ok && len(out) > 0 {
			if prev, okPrev := out[len(out)-1].(*ir.Iteration); okPrev && prev.SameSpace(it) {
				merged := *prev
				merged.Body = MergeOuterIterations(append(append([]ir.Node(nil), prev.Body...), it.Body...))
				out[len(out)-1] = &merged
				continue
			}
		}
		out = append(out, n)
	}
	return out
}
