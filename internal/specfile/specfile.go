package specfile

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/gridforge/stencil/internal/ir"
)

// Spec is a compiled operator definition.
type Spec struct {
	Name string
	// Dims holds every declared dimension, in declaration order.
	Dims []*ir.Dimension
	// Grids holds the declared tensors, in declaration order.
	Grids []*ir.Tensor
	Eqs   []*ir.Assign
	Opts  Options
}

// Options are the pipeline settings a definition may carry.
type Options struct {
	DSE       string
	DLE       string
	TimeAxis  string
	Parallel  bool
	Elemental bool
	Subs      map[string]float64
}

// CompileError is a definition error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileFile loads and compiles every operator defined in a .cue file.
func CompileFile(path string) ([]*Spec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileAll(v)
}

// CompileAll compiles every entry under the top-level "operator" struct.
func CompileAll(v cue.Value) ([]*Spec, error) {
	ops := v.LookupPath(cue.ParsePath("operator"))
	if !ops.Exists() {
		return nil, &CompileError{Field: "operator", Message: "no operator defined", Pos: v.Pos()}
	}
	iter, err := ops.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var specs []*Spec
	for iter.Next() {
		spec, err := Compile(iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Name = iter.Label()
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, &CompileError{Field: "operator", Message: "no operator defined", Pos: ops.Pos()}
	}
	return specs, nil
}

// Compile parses one operator struct into a Spec.
func Compile(v cue.Value) (*Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	spec := &Spec{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	dims, byName, err := parseDimensions(v)
	if err != nil {
		return nil, err
	}
	spec.Dims = dims

	grids, gridsByName, err := parseGrids(v, byName)
	if err != nil {
		return nil, err
	}
	spec.Grids = grids

	spec.Eqs, err = parseEquations(v, gridsByName)
	if err != nil {
		return nil, err
	}
	if len(spec.Eqs) == 0 {
		return nil, &CompileError{Field: "equations", Message: "at least one equation is required", Pos: v.Pos()}
	}

	spec.Opts, err = parseOptions(v)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// parseDimensions reads the dimensions struct. Buffered dimensions refer
// to their parent by name; the parent must be declared in the same
// definition (before or after, order does not matter).
func parseDimensions(v cue.Value) ([]*ir.Dimension, map[string]*ir.Dimension, error) {
	dimsVal := v.LookupPath(cue.ParsePath("dimensions"))
	if !dimsVal.Exists() {
		return nil, nil, &CompileError{Field: "dimensions", Message: "dimensions are required", Pos: v.Pos()}
	}
	iter, err := dimsVal.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}

	var dims []*ir.Dimension
	byName := make(map[string]*ir.Dimension)
	parents := make(map[string]string)
	for iter.Next() {
		name := iter.Label()
		dv := iter.Value()
		d := ir.NewDimension(name)

		if sv := dv.LookupPath(cue.ParsePath("size")); sv.Exists() {
			size, err := sv.Int64()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
			d.Size = int(size)
		}
		if pv := dv.LookupPath(cue.ParsePath("parent")); pv.Exists() {
			parent, err := pv.String()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
			parents[name] = parent
			period := dv.LookupPath(cue.ParsePath("period"))
			if !period.Exists() {
				return nil, nil, &CompileError{
					Field:   fmt.Sprintf("dimensions.%s.period", name),
					Message: "a buffered dimension needs a ring period",
					Pos:     dv.Pos(),
				}
			}
			pval, err := period.Int64()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
			d.Size = int(pval)
		}
		if rv := dv.LookupPath(cue.ParsePath("reverse")); rv.Exists() {
			rev, err := rv.Bool()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
			d.Reverse = rev
		}
		dims = append(dims, d)
		byName[name] = d
	}

	for name, parent := range parents {
		p, ok := byName[parent]
		if !ok {
			return nil, nil, &CompileError{
				Field:   fmt.Sprintf("dimensions.%s.parent", name),
				Message: fmt.Sprintf("unknown parent dimension %q", parent),
				Pos:     dimsVal.Pos(),
			}
		}
		byName[name].Parent = p
	}
	return dims, byName, nil
}

func parseGrids(v cue.Value, dims map[string]*ir.Dimension) ([]*ir.Tensor, map[string]*ir.Tensor, error) {
	gridsVal := v.LookupPath(cue.ParsePath("grids"))
	if !gridsVal.Exists() {
		return nil, nil, &CompileError{Field: "grids", Message: "grids are required", Pos: v.Pos()}
	}
	iter, err := gridsVal.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}

	var grids []*ir.Tensor
	byName := make(map[string]*ir.Tensor)
	for iter.Next() {
		name := iter.Label()
		gv := iter.Value()
		t := &ir.Tensor{Name: name, DType: ir.Float64, Storage: ir.External}

		dimsList := gv.LookupPath(cue.ParsePath("dims"))
		if !dimsList.Exists() {
			return nil, nil, &CompileError{
				Field:   fmt.Sprintf("grids.%s.dims", name),
				Message: "grid dims are required",
				Pos:     gv.Pos(),
			}
		}
		dimIter, err := dimsList.List()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		for dimIter.Next() {
			dname, err := dimIter.Value().String()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
			d, ok := dims[dname]
			if !ok {
				return nil, nil, &CompileError{
					Field:   fmt.Sprintf("grids.%s.dims", name),
					Message: fmt.Sprintf("unknown dimension %q", dname),
					Pos:     dimIter.Value().Pos(),
				}
			}
			t.Dims = append(t.Dims, d)
		}

		if dt := gv.LookupPath(cue.ParsePath("dtype")); dt.Exists() {
			s, err := dt.String()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
			t.DType, err = parseDType(s, dt.Pos())
			if err != nil {
				return nil, nil, err
			}
		}
		grids = append(grids, t)
		byName[name] = t
	}
	return grids, byName, nil
}

func parseDType(s string, pos token.Pos) (ir.DType, error) {
	switch s {
	case "float32":
		return ir.Float32, nil
	case "float64":
		return ir.Float64, nil
	case "int32":
		return ir.Int32, nil
	default:
		return 0, &CompileError{Field: "dtype", Message: fmt.Sprintf("unsupported dtype %q", s), Pos: pos}
	}
}

func parseEquations(v cue.Value, grids map[string]*ir.Tensor) ([]*ir.Assign, error) {
	eqsVal := v.LookupPath(cue.ParsePath("equations"))
	if !eqsVal.Exists() {
		return nil, &CompileError{Field: "equations", Message: "equations are required", Pos: v.Pos()}
	}
	iter, err := eqsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var eqs []*ir.Assign
	for iter.Next() {
		ev := iter.Value()
		lhsVal := ev.LookupPath(cue.ParsePath("lhs"))
		if !lhsVal.Exists() {
			return nil, &CompileError{Field: "equations.lhs", Message: "equation lhs is required", Pos: ev.Pos()}
		}
		lhs, err := parseAccess(lhsVal, grids)
		if err != nil {
			return nil, err
		}
		rhsVal := ev.LookupPath(cue.ParsePath("rhs"))
		if !rhsVal.Exists() {
			return nil, &CompileError{Field: "equations.rhs", Message: "equation rhs is required", Pos: ev.Pos()}
		}
		rhs, err := parseExpr(rhsVal, grids)
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, &ir.Assign{LHS: lhs, RHS: rhs})
	}
	return eqs, nil
}

// parseExpr parses a structured expression value: a grid access, a free
// symbol, a number, or an n-ary operator node folded left to right.
func parseExpr(v cue.Value, grids map[string]*ir.Tensor) (ir.Expr, error) {
	if gv := v.LookupPath(cue.ParsePath("grid")); gv.Exists() {
		return parseAccess(v, grids)
	}
	if sv := v.LookupPath(cue.ParsePath("sym")); sv.Exists() {
		name, err := sv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return &ir.Sym{Name: name}, nil
	}
	if nv := v.LookupPath(cue.ParsePath("num")); nv.Exists() {
		val, err := nv.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return &ir.Num{Val: val}, nil
	}
	if ov := v.LookupPath(cue.ParsePath("op")); ov.Exists() {
		opStr, err := ov.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		op, err := parseOp(opStr, ov.Pos())
		if err != nil {
			return nil, err
		}
		argsVal := v.LookupPath(cue.ParsePath("args"))
		if !argsVal.Exists() {
			return nil, &CompileError{Field: "args", Message: "operator node needs args", Pos: v.Pos()}
		}
		argIter, err := argsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var args []ir.Expr
		for argIter.Next() {
			arg, err := parseExpr(argIter.Value(), grids)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if len(args) < 2 {
			return nil, &CompileError{Field: "args", Message: "operator node needs at least two args", Pos: argsVal.Pos()}
		}
		expr := args[0]
		for _, arg := range args[1:] {
			expr = &ir.BinOp{Op: op, L: expr, R: arg}
		}
		return expr, nil
	}
	return nil, &CompileError{
		Field:   "expression",
		Message: "must be a grid access, sym, num, or op node",
		Pos:     v.Pos(),
	}
}

func parseOp(s string, pos token.Pos) (ir.Op, error) {
	switch s {
	case "+":
		return ir.Add, nil
	case "-":
		return ir.Sub, nil
	case "*":
		return ir.Mul, nil
	case "/":
		return ir.Div, nil
	default:
		return "", &CompileError{Field: "op", Message: fmt.Sprintf("unsupported operator %q", s), Pos: pos}
	}
}

func parseAccess(v cue.Value, grids map[string]*ir.Tensor) (*ir.Access, error) {
	name, err := v.LookupPath(cue.ParsePath("grid")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t, ok := grids[name]
	if !ok {
		return nil, &CompileError{
			Field:   "grid",
			Message: fmt.Sprintf("unknown grid %q", name),
			Pos:     v.Pos(),
		}
	}

	offsets := make([]int, len(t.Dims))
	if ov := v.LookupPath(cue.ParsePath("offsets")); ov.Exists() {
		iter, err := ov.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var got []int
		for iter.Next() {
			off, err := iter.Value().Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			got = append(got, int(off))
		}
		if len(got) != len(t.Dims) {
			return nil, &CompileError{
				Field:   "offsets",
				Message: fmt.Sprintf("grid %q has rank %d, got %d offsets", name, len(t.Dims), len(got)),
				Pos:     ov.Pos(),
			}
		}
		offsets = got
	}
	return &ir.Access{Tensor: t, Offsets: offsets}, nil
}

func parseOptions(v cue.Value) (Options, error) {
	var opts Options
	ov := v.LookupPath(cue.ParsePath("options"))
	if !ov.Exists() {
		return opts, nil
	}

	strField := func(name string, dst *string) error {
		if fv := ov.LookupPath(cue.ParsePath(name)); fv.Exists() {
			s, err := fv.String()
			if err != nil {
				return formatCUEError(err)
			}
			*dst = s
		}
		return nil
	}
	boolField := func(name string, dst *bool) error {
		if fv := ov.LookupPath(cue.ParsePath(name)); fv.Exists() {
			b, err := fv.Bool()
			if err != nil {
				return formatCUEError(err)
			}
			*dst = b
		}
		return nil
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{{"dse", &opts.DSE}, {"dle", &opts.DLE}, {"time_axis", &opts.TimeAxis}} {
		if err := strField(f.name, f.dst); err != nil {
			return opts, err
		}
	}
	if err := boolField("parallel", &opts.Parallel); err != nil {
		return opts, err
	}
	if err := boolField("elemental", &opts.Elemental); err != nil {
		return opts, err
	}

	if sv := ov.LookupPath(cue.ParsePath("subs")); sv.Exists() {
		iter, err := sv.Fields()
		if err != nil {
			return opts, formatCUEError(err)
		}
		opts.Subs = make(map[string]float64)
		for iter.Next() {
			val, err := iter.Value().Float64()
			if err != nil {
				return opts, formatCUEError(err)
			}
			opts.Subs[iter.Label()] = val
		}
	}

	if opts.TimeAxis != "" && opts.TimeAxis != "forward" && opts.TimeAxis != "backward" {
		return opts, &CompileError{
			Field:   "options.time_axis",
			Message: fmt.Sprintf("must be forward or backward, got %q", opts.TimeAxis),
			Pos:     ov.Pos(),
		}
	}
	return opts, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
