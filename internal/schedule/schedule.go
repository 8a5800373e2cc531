package schedule

import (
	"fmt"
	"strings"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/visit"
)

// OrderError reports clusters that imply contradictory dimension orderings.
// It is fatal at build time.
type OrderError struct {
	Dims []string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("ambiguous iteration order: no total ordering for dimensions %s",
		strings.Join(e.Dims, ", "))
}

// Ordering computes a total ordering of the root dimensions indexing the
// given tensors. A dimension appearing outside another in any index tuple
// must precede it globally; ties break by first-seen order. A cyclic set of
// constraints yields an OrderError.
func Ordering(tensors []*ir.Tensor) ([]*ir.Dimension, error) {
	var nodes []*ir.Dimension
	index := make(map[*ir.Dimension]int)
	succ := make(map[*ir.Dimension]map[*ir.Dimension]bool)
	indeg := make(map[*ir.Dimension]int)

	add := func(d *ir.Dimension) *ir.Dimension {
		root := d.Root()
		if _, ok := index[root]; !ok {
			index[root] = len(nodes)
			nodes = append(nodes, root)
			succ[root] = make(map[*ir.Dimension]bool)
		}
		return root
	}

	for _, tens := range tensors {
		var prev *ir.Dimension
		for _, d := range tens.Dims {
			root := add(d)
			if prev != nil && prev != root && !succ[prev][root] {
				succ[prev][root] = true
				indeg[root]++
			}
			if prev != root {
				prev = root
			}
		}
	}

	// Kahn's algorithm with first-seen tie-break: always emit the earliest
	// discovered dimension among those with no unresolved predecessor.
	emitted := make(map[*ir.Dimension]bool)
	out := make([]*ir.Dimension, 0, len(nodes))
	for len(out) < len(nodes) {
		picked := false
		for _, d := range nodes {
			if emitted[d] || indeg[d] > 0 {
				continue
			}
			emitted[d] = true
			out = append(out, d)
			for s := range succ[d] {
				indeg[s]--
			}
			picked = true
			break
		}
		if !picked {
			var cyc []string
			for _, d := range nodes {
				if !emitted[d] {
					cyc = append(cyc, d.Name)
				}
			}
			return nil, &OrderError{Dims: cyc}
		}
	}
	return out, nil
}

// Schedule wraps each cluster's expressions in nested iterations according
// to the total dimension ordering, merges compatible outer loops, and
// removes expressions made redundant by the merge. The returned list owns
// the whole tree.
func Schedule(clusters []*ir.Cluster, ordering []*ir.Dimension) (*ir.List, error) {
	rank := make(map[*ir.Dimension]int, len(ordering))
	for i, d := range ordering {
		rank[d] = i
	}

	var processed []ir.Node
	for _, cluster := range clusters {
		nest, err := scheduleCluster(cluster, rank)
		if err != nil {
			return nil, err
		}
		processed = append(processed, nest...)
	}

	processed = visit.MergeOuterIterations(processed)
	root := &ir.List{Body: processed}
	return trimRedundant(root), nil
}

// scheduleCluster builds the loop nest for one cluster: expression nodes in
// declaration order, wrapped innermost-to-outermost in iterations over the
// dimensions the cluster actually uses.
func scheduleCluster(cluster *ir.Cluster, rank map[*ir.Dimension]int) ([]ir.Node, error) {
	body := make([]ir.Node, 0, len(cluster.Exprs))
	for _, eq := range cluster.Exprs {
		body = append(body, &ir.Expression{Eq: eq})
	}

	offsets := cluster.Offsets()

	// Collapse buffered dimensions onto their parents: a ring axis and its
	// parent must become one loop. The first-seen alias names the loop.
	type axis struct {
		dim      *ir.Dimension
		min, max int
	}
	var axes []*axis
	byRoot := make(map[*ir.Dimension]*axis)
	for _, d := range offsets.Dims() {
		min, max := offsets.Range(d)
		if d.IsBuffered() {
			// Ring accesses wrap around the buffer; they never constrain
			// the traversal range.
			min, max = 0, 0
		}
		root := d.Root()
		if a, ok := byRoot[root]; ok {
			if min < a.min {
				a.min = min
			}
			if max > a.max {
				a.max = max
			}
			continue
		}
		a := &axis{dim: d, min: min, max: max}
		byRoot[root] = a
		axes = append(axes, a)
	}

	// Sort by the global ordering; every root must be covered by it.
	for _, a := range axes {
		if _, ok := rank[a.dim.Root()]; !ok {
			return nil, &OrderError{Dims: []string{a.dim.Root().Name}}
		}
	}
	for i := 1; i < len(axes); i++ {
		for j := i; j > 0 && rank[axes[j-1].dim.Root()] > rank[axes[j].dim.Root()]; j-- {
			axes[j-1], axes[j] = axes[j], axes[j-1]
		}
	}

	// Wrap innermost first. A cluster with no dimensions stays a bare
	// expression run.
	for i := len(axes) - 1; i >= 0; i-- {
		a := axes[i]
		limit := a.dim.Size
		if a.dim.IsBuffered() {
			// The loop traverses the parent axis; the ring period only
			// bounds the data, not the trip count.
			limit = a.dim.Parent.Size
		}
		body = []ir.Node{&ir.Iteration{
			Dim:        a.dim,
			Limit:      limit,
			OffsetMin:  a.min,
			OffsetMax:  a.max,
			Body:       body,
			Sequential: a.dim.IsBuffered() || a.dim.Reverse || a.dim.Root().Reverse,
		}}
	}
	return body, nil
}

// trimRedundant removes, within every perfect iteration scope, expression
// nodes that duplicate an earlier node of the same scope. Duplicates arise
// when independently scheduled clusters merge into one loop.
func trimRedundant(root *ir.List) *ir.List {
	repl := make(map[ir.Node]ir.Node)
	for _, scope := range visit.FindSections(root) {
		candidate := scope.Iters[len(scope.Iters)-1]
		if !visit.IsPerfect(candidate) {
			continue
		}
		found := make(map[string]bool)
		trimmed := make([]ir.Node, 0, len(scope.Nodes))
		for _, n := range scope.Nodes {
			if e, ok := n.(*ir.Expression); ok {
				fp := e.Eq.Fingerprint()
				if found[fp] {
					continue
				}
				found[fp] = true
			}
			trimmed = append(trimmed, n)
		}
		if len(trimmed) == len(scope.Nodes) {
			continue
		}
		next := *candidate
		next.Body = trimmed
		repl[candidate] = &next
	}
	if len(repl) == 0 {
		return root
	}
	return visit.Transform(root, repl).(*ir.List)
}
