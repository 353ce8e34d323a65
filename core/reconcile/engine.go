package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Index builds a key index for items. Later items replace earlier ones with the same key.
func Index[T any](adapter Adapter[T], items []T) map[string]T {
	idx := make(map[string]T, len(items))
	for _, item := range items {
		idx[adapter.Key(item)] = item
	}
	return idx
}

// Diff compares the stored set with the incoming set and returns a plan that would make
// stored equal to incoming.
func Diff[T any](adapter Adapter[T], stored, incoming []T) *Plan[T] {
	return DiffIndexed(adapter, Index(adapter, stored), Index(adapter, incoming))
}

// DiffIndexed is Diff over pre-built indices.
func DiffIndexed[T any](adapter Adapter[T], stored, incoming map[string]T) *Plan[T] {
	keys := buildUnion(stored, incoming)

	plan := &Plan[T]{
		Results: make([]ReconcileResult, 0, len(keys)),
	}
	plan.Summary.TotalKeys = len(keys)

	for _, key := range keys {
		result := buildResult(adapter, key, stored, incoming)
		plan.Results = append(plan.Results, result)

		switch {
		case result.IncomingPresent && !result.StoredPresent:
			plan.Actions = append(plan.Actions, Action[T]{Type: ActionAdd, Key: key, Reason: "new", Item: incoming[key]})
			plan.Summary.Adds++
		case !result.IncomingPresent && result.StoredPresent:
			plan.Actions = append(plan.Actions, Action[T]{Type: ActionDelete, Key: key, Reason: "missing in incoming", Item: stored[key]})
			plan.Summary.Deletes++
		case len(result.Mismatch) > 0:
			plan.Actions = append(plan.Actions, Action[T]{
				Type:   ActionUpdate,
				Key:    key,
				Reason: "mismatch: " + strings.Join(result.Mismatch, ", "),
				Item:   incoming[key],
			})
			plan.Summary.Updates++
		default:
			plan.Summary.Unchanged++
		}
	}
	return plan
}

// DiffSources loads both sources concurrently and diffs them.
func DiffSources[T any](ctx context.Context, adapter Adapter[T], stored, incoming Loader[T]) (*Plan[T], error) {
	var (
		storedItems   []T
		incomingItems []T
		storedErr     error
		incomingErr   error
		wg            sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		storedItems, storedErr = stored(ctx)
	}()
	go func() {
		defer wg.Done()
		incomingItems, incomingErr = incoming(ctx)
	}()
	wg.Wait()

	if storedErr != nil {
		return nil, fmt.Errorf("%s: failed to load stored items: %w", adapter.Name(), storedErr)
	}
	if incomingErr != nil {
		return nil, fmt.Errorf("%s: failed to load incoming items: %w", adapter.Name(), incomingErr)
	}
	return Diff(adapter, storedItems, incomingItems), nil
}

// ApplyPlan executes plan through m. It does nothing unless opts.Confirmed is set and
// opts.DryRun is not. It returns the number of actions applied.
func ApplyPlan[T any](ctx context.Context, m Mutator[T], plan *Plan[T], opts Options) (int, error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}
	if err := m.Apply(ctx, plan); err != nil {
		return 0, err
	}
	return len(plan.Actions), nil
}

func buildUnion[T any](stored, incoming map[string]T) []string {
	union := make(map[string]struct{}, len(stored)+len(incoming))
	for key := range stored {
		union[key] = struct{}{}
	}
	for key := range incoming {
		union[key] = struct{}{}
	}

	keys := make([]string, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func buildResult[T any](adapter Adapter[T], key string, stored, incoming map[string]T) ReconcileResult {
	s, storedPresent := stored[key]
	in, incomingPresent := incoming[key]

	result := ReconcileResult{
		Key:             key,
		StoredPresent:   storedPresent,
		IncomingPresent: incomingPresent,
		Mismatch:        []string{},
	}
	if storedPresent && incomingPresent {
		result.Mismatch = adapter.CompareFields(s, in)
	}
	return result
}
