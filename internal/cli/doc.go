// Package cli implements the stencil command line interface.
//
// Two commands cover the operator lifecycle:
//
//   - inspect: compile CUE operator definitions and print each operator's
//     parameter layout, instrumented sections and scheduled iteration
//     tree, without executing anything.
//   - run: compile a definition, bind arrays and sizes from a YAML data
//     manifest, optionally autotune block sizes, execute, and print the
//     per-section performance summary.
//
// # Manifest Format
//
// The run command takes a YAML manifest describing the inputs:
//
//	data:
//	  u:
//	    shape: [2, 128]
//	    fill: 1.0
//	dims:
//	  time: 100
//
// Each entry under data names a grid parameter and gives its shape plus
// either a uniform fill or explicit row-major values. Entries under dims
// give extents for dimensions the array shapes cannot resolve, such as
// the parent of a buffered dimension.
//
// # Tune Cache
//
// With --tune-cache the run command persists autotuning winners in a
// SQLite database keyed by operator name, definition hash and resolved
// extents. A later run with the same key pins the cached block sizes and
// skips the search.
//
// # Exit Codes
//
//   - 0: success
//   - 1: run failure (argument binding rejected, kernel error)
//   - 2: command error (bad paths, malformed definitions or manifests)
package cli
