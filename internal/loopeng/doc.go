// Package loopeng is the boundary to the loop transformation engine.
//
// An Engine accepts the scheduled tree plus a transformation-mode
// descriptor and returns a transformed tree, the blocking-parameter
// descriptors the binder and autotuner consume, any helper routines it
// hoisted out of the main body, and the storage classification of scratch
// tensors. The built-in engine implements "noop" and "blocking" (square
// tiling of parallel spatial nests, optional hoisting of the tiled nest
// into an elemental routine).
package loopeng
