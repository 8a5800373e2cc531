// Package alloc is the declaration/allocation engine.
//
// Given the final, loop-engine-transformed tree it resolves the scope of
// every variable and inserts declarations at the correct lexical site:
// scalars inline at first use, stack arrays at the tightest enclosing
// iteration that does not range over their own indexing dimensions, heap
// arrays as a preamble/postamble pair bracketing the whole routine body.
//
// Classification happens exactly once per distinct variable across all
// scopes, including the bodies of helper routines, whose scopes are
// unioned onto their call sites' iteration chains in a single pass.
package alloc
