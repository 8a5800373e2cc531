package testutil

import (
	"github.com/gridforge/stencil/internal/bind"
	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/runtime"
)

// ScriptedKernel is a runtime.Kernel that never computes anything. It
// records every invocation and reports the configured section timings,
// so summaries become deterministic.
type ScriptedKernel struct {
	// Timings is copied into the caller's sink on every invocation.
	Timings ir.Timings
	// Err, when non-nil, fails every invocation.
	Err error

	// Calls counts invocations.
	Calls int
	// LastArgs holds the argument mapping of the latest invocation.
	LastArgs *bind.Args
}

func (k *ScriptedKernel) Invoke(args *bind.Args, timings ir.Timings) error {
	k.Calls++
	k.LastArgs = args
	if k.Err != nil {
		return k.Err
	}
	for name, v := range k.Timings {
		timings[name] = v
	}
	return nil
}

// ScriptedToolchain is a runtime.Toolchain handing every compilation the
// same scripted kernel. The compiled program is retained for inspection.
type ScriptedToolchain struct {
	Kernel   *ScriptedKernel
	Compiled *runtime.Program
}

func (tc *ScriptedToolchain) Compile(p *runtime.Program) (runtime.Kernel, error) {
	tc.Compiled = p
	return tc.Kernel, nil
}
