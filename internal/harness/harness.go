package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/operator"
	"github.com/gridforge/stencil/internal/specfile"
)

// Run executes a scenario: compile the definition, build the operator,
// bind the scenario's arrays and sizes, apply, then evaluate the
// assertions and the built-in principles. The returned Result reports
// failures; the error covers setup problems only.
func Run(scenario *Scenario) (*Result, error) {
	_, result, err := execute(scenario)
	return result, err
}

func execute(scenario *Scenario) (*operator.Operator, *Result, error) {
	specs, err := specfile.CompileFile(scenario.Definition)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling %s: %w", scenario.Definition, err)
	}
	spec, err := pick(specs, scenario.Operator)
	if err != nil {
		return nil, nil, err
	}

	op, err := operator.Build(spec.Eqs, operator.Config{
		Name:      spec.Name,
		Subs:      spec.Opts.Subs,
		TimeAxis:  spec.Opts.TimeAxis,
		DSE:       spec.Opts.DSE,
		DLE:       spec.Opts.DLE,
		Parallel:  spec.Opts.Parallel,
		Elemental: spec.Opts.Elemental,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building %s: %w", spec.Name, err)
	}

	result := NewResult()
	var data []*ir.Grid
	shapes := make(map[string][]int)
	for _, p := range op.Params {
		if p.Kind != ir.TensorParam {
			continue
		}
		gs, ok := scenario.Data[p.Name]
		if !ok {
			return nil, nil, fmt.Errorf("scenario has no data for grid %q", p.Name)
		}
		g := gs.Grid()
		data = append(data, g)
		result.Grids[p.Name] = g
		shapes[p.Name] = append([]int(nil), g.Shape...)
	}
	kw := make(map[string]ir.Value, len(scenario.Dims))
	for name, v := range scenario.Dims {
		kw[name] = v
	}

	run, err := op.Apply(operator.Call{Data: data, KW: kw, Autotune: scenario.Autotune})
	if err != nil {
		return nil, nil, fmt.Errorf("running %s: %w", spec.Name, err)
	}
	result.Run = run

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	for _, msg := range CheckPrinciples(op, result, shapes) {
		result.AddError(msg)
	}
	return op, result, nil
}

func pick(specs []*specfile.Spec, name string) (*specfile.Spec, error) {
	if name == "" {
		if len(specs) != 1 {
			return nil, fmt.Errorf("definition holds %d operators, set operator in the scenario", len(specs))
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
