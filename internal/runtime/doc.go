// Package runtime turns a finished operator program into something that
// can be invoked. The Toolchain interface is the seam where a native code
// generator would plug in; the built-in portable toolchain interprets the
// iteration tree directly in Go, which keeps every pipeline stage
// observable and testable without a compiler on the host.
//
// The interpreter honours the full node set: sections accumulate wall
// time into the caller's Timings sink, blocked loops execute their tile
// and point roles, buffered axes wrap their accesses around the ring, and
// scratch declarations allocate at exactly the point the allocation
// engine placed them.
package runtime
