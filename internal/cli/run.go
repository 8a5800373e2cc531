package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gridforge/stencil/internal/bind"
	"github.com/gridforge/stencil/internal/operator"
	"github.com/gridforge/stencil/internal/specfile"
	"github.com/gridforge/stencil/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Manifest  string
	Operator  string
	Autotune  bool
	TuneCache string
}

// NewRunCommand creates the run command: compile, build, execute and
// report.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <definition.cue>",
		Short: "Build and execute an operator against a data manifest",
		Long: `Compile the CUE definition, build the named operator (or the only one),
bind the arrays and sizes from the YAML manifest, execute, and print the
per-section performance summary.

Example:
  stencil run ./diffusion.cue --data ./inputs.yaml
  stencil run ./diffusion.cue --data ./inputs.yaml --autotune --tune-cache ./tune.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(rootOpts)
			return runOperator(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "data", "", "path to YAML data manifest (required)")
	cmd.Flags().StringVar(&opts.Operator, "op", "", "operator to run (defaults to the only one defined)")
	cmd.Flags().BoolVar(&opts.Autotune, "autotune", false, "search block sizes before the run")
	cmd.Flags().StringVar(&opts.TuneCache, "tune-cache", "", "path to the SQLite autotune cache")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runOperator(cmd *cobra.Command, opts *RunOptions, path string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	specs, err := specfile.CompileFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "compiling definitions", err)
	}
	spec, err := selectSpec(specs, opts.Operator)
	if err != nil {
		return WrapExitError(ExitCommandError, "selecting operator", err)
	}

	manifest, err := LoadManifest(opts.Manifest)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading manifest", err)
	}

	op, err := buildOperator(spec)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("building %s", spec.Name), err)
	}

	data, kw, err := manifest.bind(op.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "binding manifest", err)
	}

	var cache *store.Store
	if opts.TuneCache != "" {
		cache, err = store.Open(opts.TuneCache)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening tune cache", err)
		}
		defer cache.Close()
	}

	call := operator.Call{
		Data:     data,
		KW:       kw,
		Autotune: opts.Autotune,
	}

	// A cache hit pins the winning shape and skips the search entirely.
	// The key is the resolved extents, not the manifest's explicit
	// sizes, so shape-inferred dimensions participate too.
	cacheHit := false
	var extents map[string]int
	if cache != nil && op.Blocked {
		extents, err = op.Resolve(call)
		if err != nil {
			return WrapExitError(ExitFailure, "binding arguments", err)
		}
		blocks, ok, err := cache.Get(ctx, op.Name, op.Hash(), extents)
		if err != nil {
			return WrapExitError(ExitCommandError, "reading tune cache", err)
		}
		if ok {
			slog.Info("tune cache hit", "operator", op.Name, "blocks", blocks)
			op.PinBlockSizes(blocks)
			cacheHit = true
		}
	}

	run, err := op.Apply(call)
	if err != nil {
		if bind.IsArgumentError(err) {
			return WrapExitError(ExitFailure, "binding arguments", err)
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("running %s", spec.Name), err)
	}

	if cache != nil && run.Tuned && !cacheHit {
		rec := store.Tuning{
			ID:       op.ID.String(),
			Operator: op.Name,
			SpecHash: op.Hash(),
			Extents:  extents,
			Blocks:   run.Blocks,
			Seconds:  run.Timings.Total(),
		}
		if err := cache.Put(ctx, rec); err != nil {
			return WrapExitError(ExitCommandError, "recording tuning", err)
		}
		slog.Info("tuning recorded", "operator", op.Name, "blocks", run.Blocks)
	}

	out := cmd.OutOrStdout()
	pr := message.NewPrinter(language.English)
	pr.Fprintf(out, "%s: %.6f s total\n", op.Name, run.Timings.Total())
	switch {
	case cacheHit:
		fmt.Fprintf(out, "blocks (cached): %s\n", formatBlocks(run.Blocks))
	case run.Tuned:
		fmt.Fprintf(out, "blocks (tuned): %s\n", formatBlocks(run.Blocks))
	}
	run.Summary.Report(out)
	return nil
}

func formatBlocks(blocks map[string]int) string {
	names := make([]string, 0, len(blocks))
	for name := range blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, blocks[name])
	}
	return strings.Join(parts, " ")
}

func selectSpec(specs []*specfile.Spec, name string) (*specfile.Spec, error) {
	if name == "" {
		if len(specs) != 1 {
			return nil, fmt.Errorf("definition holds %d operators, pick one with --op", len(specs))
		}
		return specs[0], nil
	}
	for _, s := range specs {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no operator %q in the definition", name)
}
