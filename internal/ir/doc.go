// Package ir provides the canonical intermediate representation for the
// stencil operator pipeline.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This ensures IR remains the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Tree nodes are a closed tagged set (Iteration, Expression, Element,
//     Section, Call, List). No open extension points.
//   - Trees are exclusively owned by the operator that built them. Passes
//     never mutate nodes in place; they produce replacement maps that are
//     applied as an immutable bottom-up rebuild (see internal/visit).
//   - A buffered dimension always resolves to its parent's identity for
//     ordering, merging and sizing comparisons.
package ir
