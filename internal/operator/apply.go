package operator

import (
	"fmt"
	"time"

	"github.com/gridforge/stencil/internal/bind"
	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/perf"
	"github.com/gridforge/stencil/internal/tune"
)

// Call carries one invocation's inputs.
type Call struct {
	// Data binds arrays to tensor parameters positionally.
	Data []*ir.Grid
	// KW overrides parameters by name: *ir.Grid for data, int for
	// dimension sizes.
	KW map[string]ir.Value
	// Autotune requests the block-size search. It only runs when the loop
	// engine actually tiled and no block size is pinned.
	Autotune bool
}

// Run is one invocation's outcome.
type Run struct {
	Summary *perf.Summary
	Timings ir.Timings
	// Blocks holds the block sizes the run executed with, empty when the
	// operator is unblocked.
	Blocks map[string]int
	// Sizes holds the resolved extent of every dimension, the tune-cache
	// key component.
	Sizes map[string]int
	// Tuned reports whether the search ran on this call.
	Tuned bool
}

// Apply binds the arguments, optionally tunes, invokes the kernel and
// accounts the run.
func (o *Operator) Apply(call Call) (*Run, error) {
	binding, err := bind.Bind(bind.Request{
		Params: o.Params,
		Blocks: o.Blocks,
		Data:   call.Data,
		KW:     call.KW,
	})
	if err != nil {
		return nil, fmt.Errorf("applying %s: %w", o.Name, err)
	}

	run := &Run{Blocks: make(map[string]int, len(o.Blocks))}

	if call.Autotune && o.Blocked && binding.Autotune {
		cfg := o.cfg.Tune
		cfg.Aggressive = cfg.Aggressive || o.aggressive
		_, err := tune.Search(tune.Request{
			Args:       binding.Args,
			Blocks:     o.Blocks,
			Outputs:    o.outputNames(),
			Squeezable: o.squeezable,
			Run:        o.timedRun,
			Config:     cfg,
			Logger:     o.cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("applying %s: %w", o.Name, err)
		}
		run.Tuned = true
	}

	timings := make(ir.Timings)
	if err := o.kernel.Invoke(binding.Args, timings); err != nil {
		return nil, fmt.Errorf("applying %s: %w", o.Name, err)
	}

	for _, bp := range o.Blocks {
		run.Blocks[bp.Name] = binding.Args.Int(bp.Name)
	}
	run.Timings = timings
	run.Sizes = sizesByName(binding.DimSizes)
	run.Summary = o.profiler.Summarize(timings, run.Sizes, o.Prog.DType.ElemSize())
	o.cfg.Logger.Debug("operator applied",
		"name", o.Name, "seconds", timings.Total(), "tuned", run.Tuned)
	return run, nil
}

// Resolve binds one call without invoking anything and returns the
// resolved extent of every open dimension, the key a tune cache wants
// before the run happens.
func (o *Operator) Resolve(call Call) (map[string]int, error) {
	binding, err := bind.Bind(bind.Request{
		Params: o.Params,
		Blocks: o.Blocks,
		Data:   call.Data,
		KW:     call.KW,
	})
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", o.Name, err)
	}
	return sizesByName(binding.DimSizes), nil
}

// Arguments performs the full binding without invoking anything and
// returns the flat ordered argument list, for callers that drive the
// kernel from foreign code.
func (o *Operator) Arguments(call Call) ([]bind.Pair, error) {
	binding, err := bind.Bind(bind.Request{
		Params: o.Params,
		Blocks: o.Blocks,
		Data:   call.Data,
		KW:     call.KW,
		Extra:  []bind.Pair{{Name: "timers", Value: make(ir.Timings)}},
	})
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", o.Name, err)
	}
	return binding.Args.Pairs(), nil
}

// timedRun is the autotuner's measurement callback: one full invocation,
// wall-clocked.
func (o *Operator) timedRun(args *bind.Args) (float64, error) {
	start := time.Now()
	if err := o.kernel.Invoke(args, make(ir.Timings)); err != nil {
		return 0, err
	}
	return time.Since(start).Seconds(), nil
}

func (o *Operator) outputNames() []string {
	var out []string
	for _, p := range o.Params {
		if p.Kind == ir.TensorParam && p.IsOutput {
			out = append(out, p.Name)
		}
	}
	return out
}

func sizesByName(sizes map[*ir.Dimension]int) map[string]int {
	out := make(map[string]int, len(sizes))
	for d, v := range sizes {
		out[d.Name] = v
	}
	return out
}
