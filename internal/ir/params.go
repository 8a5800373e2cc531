package ir

// ParamKind classifies a formal argument of the generated routine.
type ParamKind int

const (
	// TensorParam is a caller-supplied data array.
	TensorParam ParamKind = iota
	// DimParam is an integer extent for an open dimension or a blocking
	// parameter introduced by the loop engine.
	DimParam
	// TimerParam is the profiling sink appended after all declared
	// parameters.
	TimerParam
)

// Parameter is a named formal argument. Names are unique within one
// operator and ordering is stable across calls.
type Parameter struct {
	Kind     ParamKind
	Name     string
	Tensor   *Tensor
	Dim      *Dimension
	IsOutput bool
}

// Value is an argument value bound to a parameter: an int for DimParam,
// a *Grid for TensorParam, or a Timings sink for TimerParam.
type Value any

// Timings is the profiling sink threaded through a kernel invocation.
// Keys are section names; values are measured wall seconds.
type Timings map[string]float64

// Total returns the sum of all section times.
func (t Timings) Total() float64 {
	var sum float64
	for _, v := range t {
		sum += v
	}
	return sum
}
