// Package visit provides traversal and reconstruction passes over ir trees.
//
// All passes are read-only over their input. Structural change goes through
// Transform: callers build a map from old-node identity to new node, and the
// tree is reconstructed bottom-up from that map. Nodes absent from the map
// are reused as-is, so untouched subtrees keep their identity.
package visit
