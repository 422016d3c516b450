// Package history persists accepted scrobbles in SQLite and answers the
// duplicate-detection lookups the reconciler needs.
//
// Records are append-only: they are created when a submission succeeds and
// removed only by retention pruning (or the operator cleanup tooling built on
// the same Prune contract). The dedup key is the (titleKey, artistKey) pair,
// the folded form of the track metadata; a covering index keeps the
// most-recent-per-key lookup cheap.
//
// The store is deliberately forgiving on open: a missing database file
// initializes empty, and an unreadable one is moved aside and recreated empty
// with a warning. Losing history risks re-submitting old scrobbles but never
// takes the engine down.
package history
