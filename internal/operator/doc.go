// Package operator drives the whole pipeline. Build runs the one-time
// construction chain: symbolic rewrite, dimension ordering, cluster
// scheduling, profiling instrumentation, parameter derivation, the loop
// engine and declaration insertion, finishing with toolchain compilation.
// Apply runs per call: argument binding, the optional block-size search
// and the timed kernel invocation, returning the performance summary.
package operator
