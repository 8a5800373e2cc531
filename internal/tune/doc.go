// Package tune empirically searches loop-blocking parameters.
//
// The search explores a fixed, possibly expanded, finite candidate set and
// accepts the empirical minimum of actual timed executions. It never
// extrapolates. Trial runs substitute private copies for output buffers so
// the search has no externally visible side effects; the only committed
// result is the winning block shape written back into the caller's
// argument mapping.
package tune
