package loopeng

import (
	"fmt"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/visit"
)

// stackLimit is the largest scratch tensor, in elements, the engine keeps
// on the stack. Anything larger, or with an open extent, goes on the heap.
const stackLimit = 4096

// Options is the transformation-mode descriptor.
type Options struct {
	// Mode selects the transformation: "noop" or "blocking".
	Mode string
	// Parallel records whether shared-memory parallelism is enabled in the
	// target toolchain. It gates which loops are considered for tiling.
	Parallel bool
	// Elemental hoists each tiled nest into a helper routine called from
	// the main body.
	Elemental bool
}

// BlockParam describes one blocking parameter introduced by the transform.
type BlockParam struct {
	// Name is the generated routine parameter, e.g. "x_block_size".
	Name string
	// Dim is the originating dimension the parameter tiles.
	Dim *ir.Dimension
	// Value, when non-zero, is a fixed block size; it disables autotuning
	// for this parameter.
	Value int
	// Derive, when non-nil, computes the block size from the resolved
	// dimension extent. Like Value, it disables autotuning.
	Derive func(extent int) int
}

// Result is the loop engine's output contract.
type Result struct {
	Tree        ir.Node
	BlockParams []BlockParam
	Routines    []*ir.Routine
	// AppliedBlocking reports whether any loop was actually tiled; the
	// autotuner only runs when it is set.
	AppliedBlocking bool
	// Aggressive asks the autotuner for the expanded candidate search.
	Aggressive bool
}

// Engine transforms a scheduled tree.
type Engine interface {
	Transform(tree ir.Node, opts Options) (*Result, error)
}

// New returns the built-in engine.
func New() Engine { return &builtin{} }

type builtin struct{}

func (b *builtin) Transform(tree ir.Node, opts Options) (*Result, error) {
	classifyScratch(tree)

	switch opts.Mode {
	case "", "noop":
		return &Result{Tree: tree}, nil
	case "blocking":
		return b.applyBlocking(tree, opts)
	default:
		return nil, fmt.Errorf("loopeng: unknown mode %q", opts.Mode)
	}
}

// classifyScratch resolves the storage class of every scratch tensor once:
// small fixed-extent temporaries live on the stack, everything else on the
// heap. External tensors and scalars are left untouched.
func classifyScratch(tree ir.Node) {
	for _, e := range visit.FindExpressions(tree) {
		target := e.Eq.LHS.Tensor
		if target.Storage == ir.External || target.IsScalar() {
			continue
		}
		elems := 1
		fixed := true
		for _, d := range target.Dims {
			if d.Size == 0 {
				fixed = false
				break
			}
			elems *= d.Size
		}
		if fixed && elems <= stackLimit {
			target.Storage = ir.Stack
		} else {
			target.Storage = ir.Heap
		}
	}
}

// applyBlocking tiles the outermost run of parallel, non-buffered loops in
// every perfect nest. Tiling is square: one blocking parameter per tiled
// dimension, sized uniformly by the autotuner.
func (b *builtin) applyBlocking(tree ir.Node, opts Options) (*Result, error) {
	res := &Result{Tree: tree}

	repl := make(map[ir.Node]ir.Node)
	seen := make(map[*ir.Iteration]bool)
	params := make(map[string]bool)
	n := 0
	for _, scope := range visit.FindSections(tree) {
		run := blockableRun(scope.Iters)
		if len(run) == 0 || seen[run[0]] {
			continue
		}
		seen[run[0]] = true

		tiled, blockParams := tileRun(run)
		for _, bp := range blockParams {
			if !params[bp.Name] {
				params[bp.Name] = true
				res.BlockParams = append(res.BlockParams, bp)
			}
		}

		if opts.Elemental {
			routine := &ir.Routine{
				Name: fmt.Sprintf("f_%d", n),
				Body: []ir.Node{tiled},
			}
			n++
			res.Routines = append(res.Routines, routine)
			repl[run[0]] = &ir.Call{Name: routine.Name}
		} else {
			repl[run[0]] = tiled
		}
		res.AppliedBlocking = true
	}

	if res.AppliedBlocking {
		res.Tree = visit.Transform(tree, repl)
		// Deep tiled nests have a large legal search space; ask for the
		// expanded candidate set.
		res.Aggressive = len(res.BlockParams) >= 3
	}
	return res, nil
}

// blockableRun returns the outermost consecutive run of parallel,
// non-buffered iterations in a perfect chain. Sequential (time-stepping)
// loops are never tiled.
func blockableRun(chain []*ir.Iteration) []*ir.Iteration {
	var run []*ir.Iteration
	for _, it := range chain {
		if it.Sequential || it.Dim.IsBuffered() || it.Block != nil {
			if len(run) > 0 {
				break
			}
			continue
		}
		if len(run) > 0 && run[len(run)-1].Body[0] != it {
			break
		}
		run = append(run, it)
	}
	if len(run) < 1 {
		return nil
	}
	// Verify the run is an unbroken nest ending in the innermost loop's body.
	for i := 0; i+1 < len(run); i++ {
		if len(run[i].Body) != 1 || run[i].Body[0] != run[i+1] {
			return run[:i+1]
		}
	}
	return run
}

// tileRun rewrites a nest [i1 i2 ... ik] into tile loops followed by
// point loops: i1-outer ... ik-outer, i1-inner ... ik-inner(body).
func tileRun(run []*ir.Iteration) (ir.Node, []BlockParam) {
	innermost := run[len(run)-1]

	var blockParams []BlockParam
	for _, it := range run {
		blockParams = append(blockParams, BlockParam{
			Name: BlockParamName(it.Dim),
			Dim:  it.Dim,
		})
	}

	// Point loops, innermost first.
	body := innermost.Body
	for i := len(run) - 1; i >= 0; i-- {
		inner := *run[i]
		inner.Body = body
		inner.Block = &ir.Block{Param: blockParams[i].Name, Role: ir.BlockInner}
		body = []ir.Node{&inner}
	}
	// Tile loops around them.
	for i := len(run) - 1; i >= 0; i-- {
		outer := *run[i]
		outer.Body = body
		outer.Block = &ir.Block{Param: blockParams[i].Name, Role: ir.BlockOuter}
		body = []ir.Node{&outer}
	}
	return body[0], blockParams
}

// BlockParamName returns the generated parameter name tiling dim.
func BlockParamName(dim *ir.Dimension) string {
	return dim.Name + "_block_size"
}
