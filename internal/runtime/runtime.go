package runtime

import (
	"fmt"

	"github.com/gridforge/stencil/internal/bind"
	"github.com/gridforge/stencil/internal/ir"
)

// Program is the compiled form of one operator: the instrumented,
// transformed iteration tree plus its helper routines and formal
// parameter list.
type Program struct {
	Name     string
	Body     []ir.Node
	Routines []*ir.Routine
	Params   []*ir.Parameter
	DType    ir.DType
}

// Kernel is an invocable program.
type Kernel interface {
	// Invoke runs the program against the bound arguments. Section wall
	// times are accumulated into timings.
	Invoke(args *bind.Args, timings ir.Timings) error
}

// Toolchain lowers a program into a kernel.
type Toolchain interface {
	Compile(p *Program) (Kernel, error)
}

// Portable returns the built-in interpreting toolchain.
func Portable() Toolchain { return portable{} }

type portable struct{}

func (portable) Compile(p *Program) (Kernel, error) {
	routines := make(map[string]*ir.Routine, len(p.Routines))
	for _, r := range p.Routines {
		if _, dup := routines[r.Name]; dup {
			return nil, fmt.Errorf("runtime: duplicate routine %q", r.Name)
		}
		routines[r.Name] = r
	}
	return &kernel{prog: p, routines: routines}, nil
}

type kernel struct {
	prog     *Program
	routines map[string]*ir.Routine
}

func (k *kernel) Invoke(args *bind.Args, timings ir.Timings) error {
	ex := &executor{
		args:     args,
		timings:  timings,
		routines: k.routines,
		indices:  make(map[string]int),
		scalars:  make(map[string]float64),
		scratch:  make(map[string]*ir.Grid),
		bases:    make(map[string]int),
	}
	for _, n := range k.prog.Body {
		if err := ex.exec(n); err != nil {
			return fmt.Errorf("invoking %s: %w", k.prog.Name, err)
		}
	}
	return nil
}
