package operator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/gridforge/stencil/internal/alloc"
	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/loopeng"
	"github.com/gridforge/stencil/internal/perf"
	"github.com/gridforge/stencil/internal/rewrite"
	"github.com/gridforge/stencil/internal/runtime"
	"github.com/gridforge/stencil/internal/schedule"
	"github.com/gridforge/stencil/internal/tune"
	"github.com/gridforge/stencil/internal/visit"
)

// Config selects the pipeline's modes for one build. The zero value is a
// usable default: basic rewriting, no loop transformation, the portable
// toolchain.
type Config struct {
	// Name labels the generated routine; reports and the tune cache key
	// off it. Defaults to "kernel".
	Name string
	// Subs substitutes numeric values for free symbols in the equations
	// before any other stage sees them.
	Subs map[string]float64
	// TimeAxis is "forward" (default) or "backward"; backward reverses
	// every buffered axis and its parent.
	TimeAxis string
	// DSE is the symbolic rewrite mode, "noop" or "basic".
	DSE string
	// DLE is the loop engine mode, "noop" or "blocking".
	DLE string
	// Parallel and Elemental are forwarded to the loop engine.
	Parallel  bool
	Elemental bool
	Toolchain runtime.Toolchain
	Tune      tune.Config
	Logger    *slog.Logger
}

// Operator is a built, invocable stencil program.
type Operator struct {
	ID     uuid.UUID
	Name   string
	Prog   *runtime.Program
	Params []ir.Parameter
	Blocks []loopeng.BlockParam
	// Blocked reports whether the loop engine actually tiled anything;
	// the autotuner only runs when it did.
	Blocked bool

	cfg        Config
	kernel     runtime.Kernel
	profiler   *perf.Profiler
	aggressive bool
	squeezable []string
	hash       string
}

// Build compiles update equations into an operator.
func Build(eqs []*ir.Assign, cfg Config) (*Operator, error) {
	if cfg.Name == "" {
		cfg.Name = "kernel"
	}
	if cfg.DSE == "" {
		cfg.DSE = "basic"
	}
	if cfg.DLE == "" {
		cfg.DLE = "noop"
	}
	if cfg.Toolchain == nil {
		cfg.Toolchain = runtime.Portable()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	eqs = applySubs(eqs, cfg.Subs)
	if cfg.TimeAxis == "backward" {
		reverseTime(eqs)
	}

	dtype, err := rewrite.TargetType(eqs)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", cfg.Name, err)
	}

	state, err := rewrite.New().Rewrite(eqs, cfg.DSE)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", cfg.Name, err)
	}

	ordering, err := schedule.Ordering(state.Input)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", cfg.Name, err)
	}
	tree, err := schedule.Schedule(state.Clusters, ordering)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", cfg.Name, err)
	}

	profiler, body := perf.Instrument(tree.Body)
	instrumented := &ir.List{Header: tree.Header, Body: body, Footer: tree.Footer}

	params := deriveParams(state)

	res, err := loopeng.New().Transform(instrumented, loopeng.Options{
		Mode:      cfg.DLE,
		Parallel:  cfg.Parallel || cfg.DLE == "blocking",
		Elemental: cfg.Elemental,
	})
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", cfg.Name, err)
	}
	for _, bp := range res.BlockParams {
		params = append(params, ir.Parameter{Kind: ir.DimParam, Name: bp.Name, Dim: bp.Dim})
	}
	params = append(params, ir.Parameter{Kind: ir.TimerParam, Name: "timers"})

	final, routines, err := alloc.Insert(res.Tree, res.Routines)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", cfg.Name, err)
	}

	prog := &runtime.Program{
		Name:     cfg.Name,
		Body:     []ir.Node{final},
		Routines: routines,
		Params:   paramPtrs(params),
		DType:    dtype,
	}
	kernel, err := cfg.Toolchain.Compile(prog)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", cfg.Name, err)
	}

	op := &Operator{
		ID:         uuid.New(),
		Name:       cfg.Name,
		Prog:       prog,
		Params:     params,
		Blocks:     res.BlockParams,
		Blocked:    res.AppliedBlocking,
		cfg:        cfg,
		kernel:     kernel,
		profiler:   profiler,
		aggressive: res.Aggressive,
		squeezable: squeezableDims(final),
		hash:       specHash(eqs),
	}
	cfg.Logger.Debug("operator built",
		"name", op.Name, "id", op.ID, "params", len(op.Params),
		"blocks", len(op.Blocks), "sections", len(profiler.Sections))
	return op, nil
}

// Hash is a stable digest of the update equations, used as the tune-cache
// key alongside the operator name and resolved extents.
func (o *Operator) Hash() string { return o.hash }

// Sections lists the instrumented section profiles, in tree order.
func (o *Operator) Sections() []*perf.SectionProfile { return o.profiler.Sections }

// PinBlockSizes fixes the given blocking parameters to known-good values,
// typically from the tune cache, which disables the search for them.
func (o *Operator) PinBlockSizes(sizes map[string]int) {
	for i := range o.Blocks {
		if v, ok := sizes[o.Blocks[i].Name]; ok {
			o.Blocks[i].Value = v
		}
	}
}

func applySubs(eqs []*ir.Assign, subs map[string]float64) []*ir.Assign {
	if len(subs) == 0 {
		return eqs
	}
	out := make([]*ir.Assign, len(eqs))
	for i, eq := range eqs {
		out[i] = &ir.Assign{LHS: eq.LHS, RHS: ir.SubstituteSyms(eq.RHS, subs)}
	}
	return out
}

// reverseTime flips every buffered axis, and its parent, to backward
// traversal.
func reverseTime(eqs []*ir.Assign) {
	for _, eq := range eqs {
		for _, t := range eq.Tensors() {
			for _, d := range t.Dims {
				if d.IsBuffered() {
					d.Reverse = true
					d.Parent.Reverse = true
				}
			}
		}
	}
}

// deriveParams builds the declared parameter list: external tensors in
// first-seen order, then one size parameter per open dimension (including
// the parents of buffered axes), sorted by name.
func deriveParams(state *rewrite.State) []ir.Parameter {
	outputs := make(map[*ir.Tensor]bool, len(state.Output))
	for _, t := range state.Output {
		outputs[t] = true
	}

	var params []ir.Parameter
	dims := make(map[string]*ir.Dimension)
	for _, t := range state.Input {
		if t.IsScalar() || t.Storage != ir.External {
			continue
		}
		params = append(params, ir.Parameter{
			Kind: ir.TensorParam, Name: t.Name, Tensor: t, IsOutput: outputs[t],
		})
		for _, d := range t.Dims {
			if d.IsOpen() {
				dims[d.Name] = d
			}
			if d.IsBuffered() && d.Parent.IsOpen() {
				dims[d.Parent.Name] = d.Parent
			}
		}
	}

	names := make([]string, 0, len(dims))
	for name := range dims {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		params = append(params, ir.Parameter{Kind: ir.DimParam, Name: name, Dim: dims[name]})
	}
	return params
}

func paramPtrs(params []ir.Parameter) []*ir.Parameter {
	out := make([]*ir.Parameter, len(params))
	for i := range params {
		out[i] = &params[i]
	}
	return out
}

// squeezableDims names the extent parameters safe to shrink during
// autotuning trials: parents of buffered axes driven by a sequential loop.
func squeezableDims(tree ir.Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range visit.FindIterations(tree) {
		if it.Sequential && it.Dim.IsBuffered() && it.Dim.Parent.IsOpen() {
			name := it.Dim.Parent.Name
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

func specHash(eqs []*ir.Assign) string {
	h := sha256.New()
	for _, eq := range eqs {
		h.Write([]byte(eq.Fingerprint()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
