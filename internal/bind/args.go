package bind

import "github.com/gridforge/stencil/internal/ir"

// Pair is one (parameter name, bound value) entry.
type Pair struct {
	Name  string
	Value ir.Value
}

// Args is an insertion-ordered mapping from parameter name to bound value.
// Ordering follows the operator's parameter list and is stable across
// calls; it is the order the native routine receives its arguments in.
type Args struct {
	names  []string
	values map[string]ir.Value
}

// NewArgs creates an empty argument mapping.
func NewArgs() *Args {
	return &Args{values: make(map[string]ir.Value)}
}

// Set binds a value, appending the name on first use and overwriting on
// subsequent ones.
func (a *Args) Set(name string, v ir.Value) {
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = v
}

// Get returns the bound value for name.
func (a *Args) Get(name string) (ir.Value, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Int returns the bound integer for name, or 0 when absent or non-integer.
func (a *Args) Int(name string) int {
	if v, ok := a.values[name]; ok {
		if i, ok := v.(int); ok {
			return i
		}
	}
	return 0
}

// Grid returns the bound grid for name, or nil.
func (a *Args) Grid(name string) *ir.Grid {
	if v, ok := a.values[name]; ok {
		if g, ok := v.(*ir.Grid); ok {
			return g
		}
	}
	return nil
}

// Clone returns a shallow copy: same value references, independent order
// and mapping. The autotuner clones before substituting trial values.
func (a *Args) Clone() *Args {
	out := &Args{
		names:  append([]string(nil), a.names...),
		values: make(map[string]ir.Value, len(a.values)),
	}
	for k, v := range a.values {
		out.values[k] = v
	}
	return out
}

// Pairs returns the bound entries in insertion order.
func (a *Args) Pairs() []Pair {
	out := make([]Pair, 0, len(a.names))
	for _, n := range a.names {
		out = append(out, Pair{Name: n, Value: a.values[n]})
	}
	return out
}

// Names returns the parameter names in insertion order.
func (a *Args) Names() []string { return a.names }
