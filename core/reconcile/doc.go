// Package reconcile provides a generic engine for reconciling a stored set of entities
// against an incoming set.
//
// The engine indexes both sides by key, walks the sorted union of keys and classifies
// each one:
//   - present only in incoming: ActionAdd
//   - present only in stored: ActionDelete
//   - present in both with field mismatches: ActionUpdate
//   - otherwise unchanged
//
// Model-specific logic (key extraction and field comparison) lives in an Adapter.
// Executing a plan is delegated to a Mutator and guarded by Options so callers can
// show a dry-run plan before applying it.
//
// # Usage Example
//
//	plan := reconcile.Diff[Row](adapter, storedRows, incomingRows)
//	fmt.Println(plan.Summary.Adds, plan.Summary.Updates, plan.Summary.Deletes)
//
//	n, err := reconcile.ApplyPlan(ctx, mutator, plan, reconcile.Options{Confirmed: true})
package reconcile
