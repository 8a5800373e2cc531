// Package store persists autotuning results in SQLite so repeated runs of
// the same operator on the same problem size skip the block-size search.
//
// Rows are keyed by operator name, the digest of its update equations and
// the canonical encoding of the resolved dimension extents; a tuning for a
// 128x128 grid says nothing about a 512x512 one. Re-tuning the same key
// replaces the row, so the cache always holds the latest winner.
//
// The database uses WAL mode with a single writer connection and a busy
// timeout, which keeps concurrent readers safe without any locking in this
// package.
package store
