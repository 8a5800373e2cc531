// Package perf instruments the scheduled iteration tree with named timed
// sections and turns the measured wall times into per-section performance
// figures: flop counts, memory traffic, operational intensity and
// achieved gigaflops.
//
// Instrumentation happens at build time, before the loop engine reshapes
// the tree; the static operation and access counts of each section are
// recorded then. At apply time the resolved dimension extents and the
// timer readings are combined with those counts into a Summary.
package perf
