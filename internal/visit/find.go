package visit

import "github.com/gridforge/stencil/internal/ir"

// FindIterations returns every iteration in the tree, preorder.
func FindIterations(n ir.Node) []*ir.Iteration {
	var out []*ir.Iteration
	Walk(n, func(c ir.Node) {
		if it, ok := c.(*ir.Iteration); ok {
			out = append(out, it)
		}
	})
	return out
}

// FindExpressions returns every expression in the tree, preorder.
func FindExpressions(n ir.Node) []*ir.Expression {
	var out []*ir.Expression
	Walk(n, func(c ir.Node) {
		if e, ok := c.(*ir.Expression); ok {
			out = append(out, e)
		}
	})
	return out
}

// Walk calls fn for every node in the tree, preorder.
func Walk(n ir.Node, fn func(ir.Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch v := n.(type) {
	case *ir.List:
		for _, c := range v.Header {
			Walk(c, fn)
		}
		for _, c := range v.Body {
			Walk(c, fn)
		}
		for _, c := range v.Footer {
			Walk(c, fn)
		}
	case *ir.Section:
		Walk(v.Body, fn)
	case *ir.Iteration:
		for _, c := range v.Body {
			Walk(c, fn)
		}
	}
}

// SectionScope is one maximal iteration chain together with the leaf nodes
// directly inside its innermost iteration.
type SectionScope struct {
	Iters []*ir.Iteration
	Nodes []ir.Node
}

// FindSections enumerates, in discovery order, every iteration chain that
// directly contains leaf nodes. A chain whose innermost iteration is perfect
// has Nodes equal to that iteration's complete body.
func FindSections(n ir.Node) []SectionScope {
	var out []SectionScope
	var stack []*ir.Iteration

	var walk func(ir.Node)
	walk = func(c ir.Node) {
		switch v := c.(type) {
		case *ir.List:
			for _, b := range v.Header {
				walk(b)
			}
			for _, b := range v.Body {
				walk(b)
			}
			for _, b := range v.Footer {
				walk(b)
			}
		case *ir.Section:
			walk(v.Body)
		case *ir.Iteration:
			stack = append(stack, v)
			var leaves []ir.Node
			for _, b := range v.Body {
				if _, nested := b.(*ir.Iteration); nested {
					walk(b)
				} else {
					leaves = append(leaves, b)
				}
			}
			if len(leaves) > 0 {
				out = append(out, SectionScope{
					Iters: append([]*ir.Iteration(nil), stack...),
					Nodes: leaves,
				})
			}
			stack = stack[:len(stack)-1]
		}
	}
	walk(n)
	return out
}

// IsPerfect reports whether n is a perfect iteration: below it there is no
// branching structure other than a flat run of expressions, or a single
// nested iteration (no siblings) that is itself perfect.
func IsPerfect(n ir.Node) bool {
	it, ok := n.(*ir.Iteration)
	if !ok {
		return false
	}
	return perfectBody(it.Body)
}

func perfectBody(body []ir.Node) bool {
	nested := false
	for _, c := range body {
		if _, ok := c.(*ir.Iteration); ok {
			nested = true
		}
	}
	if !nested {
		for _, c := range body {
			if _, ok := c.(*ir.Expression); !ok {
				return false
			}
		}
		return true
	}
	if len(body) != 1 {
		return false
	}
	return IsPerfect(body[0])
}

// Scope pairs a leaf node with its enclosing iteration chain, outermost
// first. Call nodes appear as scopes so the allocation pass can union the
// callee's scopes onto the call site's chain.
type Scope struct {
	Node  ir.Node
	Iters []*ir.Iteration
}

// FindScopes returns the scope of every expression and call in the tree, in
// discovery order. prefix seeds the iteration chain; it is used to graft a
// helper routine's scopes onto the chain enclosing its call site.
func FindScopes(n ir.Node, prefix []*ir.Iteration) []Scope {
	var out []Scope
	stack := append([]*ir.Iteration(nil), prefix...)

	var walk func(ir.Node)
	walk = func(c ir.Node) {
		switch v := c.(type) {
		case *ir.List:
			for _, b := range v.Header {
				walk(b)
			}
			for _, b := range v.Body {
				walk(b)
			}
			for _, b := range v.Footer {
				walk(b)
			}
		case *ir.Section:
			walk(v.Body)
		case *ir.Iteration:
			stack = append(stack, v)
			for _, b := range v.Body {
				walk(b)
			}
			stack = stack[:len(stack)-1]
		case *ir.Expression, *ir.Call:
			out = append(out, Scope{Node: c, Iters: append([]*ir.Iteration(nil), stack...)})
		}
	}
	walk(n)
	return out
}
