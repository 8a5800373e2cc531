package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/operator"
	"github.com/gridforge/stencil/internal/specfile"
)

// NewInspectCommand creates the inspect command: compile definitions and
// print each operator's parameters, sections and scheduled tree without
// running anything.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <definition.cue>",
		Short: "Compile operator definitions and print their build layout",
		Long: `Compile each operator in the CUE definition and print its declared
parameters, instrumented sections and scheduled iteration tree.

Example:
  stencil inspect ./diffusion.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(rootOpts)
			return runInspect(cmd, args[0])
		},
	}
	return cmd
}

func runInspect(cmd *cobra.Command, path string) error {
	specs, err := specfile.CompileFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "compiling definitions", err)
	}

	out := cmd.OutOrStdout()
	for _, spec := range specs {
		op, err := buildOperator(spec)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("building %s", spec.Name), err)
		}
		slog.Debug("operator built", "name", op.Name, "id", op.ID)

		fmt.Fprintf(out, "operator %s\n", op.Name)
		fmt.Fprintln(out, "  parameters:")
		for _, p := range op.Params {
			switch p.Kind {
			case ir.TensorParam:
				role := "in"
				if p.IsOutput {
					role = "out"
				}
				fmt.Fprintf(out, "    %s: grid rank %d (%s)\n", p.Name, len(p.Tensor.Dims), role)
			case ir.DimParam:
				fmt.Fprintf(out, "    %s: extent\n", p.Name)
			case ir.TimerParam:
				fmt.Fprintf(out, "    %s: timer sink\n", p.Name)
			}
		}
		fmt.Fprintln(out, "  sections:")
		for _, s := range op.Sections() {
			fmt.Fprintf(out, "    %s: %d ops, %d accesses per point\n", s.Name, s.Ops, s.Accesses)
		}
		fmt.Fprintln(out, "  tree:")
		for _, n := range op.Prog.Body {
			fmt.Fprint(out, indent(ir.Dump(n), "    "))
		}
	}
	return nil
}

func buildOperator(spec *specfile.Spec) (*operator.Operator, error) {
	return operator.Build(spec.Eqs, operator.Config{
		Name:      spec.Name,
		Subs:      spec.Opts.Subs,
		TimeAxis:  spec.Opts.TimeAxis,
		DSE:       spec.Opts.DSE,
		DLE:       spec.Opts.DLE,
		Parallel:  spec.Opts.Parallel,
		Elemental: spec.Opts.Elemental,
	})
}

func indent(s, pad string) string {
	var out []byte
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out = append(out, pad...)
				out = append(out, s[start:i]...)
			}
			if i < len(s) {
				out = append(out, '\n')
			}
			start = i + 1
		}
	}
	return string(out)
}
