// Package rewrite is the boundary to the upstream symbolic engine.
//
// The pipeline consumes clusters, not raw equations: an Engine accepts an
// ordered list of update equations and returns them grouped into clusters
// with input/output storage roles resolved. The built-in engine performs no
// symbolic algebra; it groups adjacent equations with identical
// iteration-offset structure and checks element-type consistency. A real
// optimizing engine plugs in behind the same interface.
//
// The package also exposes the static operation-count and memory-touch
// estimators that the performance accountant reads at build time.
package rewrite
