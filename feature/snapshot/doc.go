// Package snapshot keeps the per-seller current state and reconciles completed
// batches against it.
//
// A reconciliation diffs the incoming items with the stored snapshot, replaces the
// snapshot and applies the delta to the search index inside one transaction, so the
// stored state and the index never diverge. Every run leaves a processing history row.
package snapshot
