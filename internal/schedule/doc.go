// Package schedule turns a flat collection of symbolic clusters into one
// well-formed nested iteration tree with a total dimension ordering.
//
// Scheduling is strictly deterministic: identical clusters in, identical
// tree out. Contradictory per-cluster dimension orderings are a build-time
// failure, never resolved silently.
package schedule
