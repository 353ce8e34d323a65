package reconcile

import "context"

// Adapter defines the model-specific part of a reconciliation.
type Adapter[T any] interface {
	// Name returns the unique name of this adapter (e.g., "price_items").
	Name() string

	// Key returns the entity key used to match items across sources.
	Key(item T) string

	// CompareFields compares the mapped fields of two items with the same key and returns
	// one description per differing field, e.g. "price: stored=10 incoming=12".
	// An empty result means the items are equal.
	CompareFields(stored, incoming T) []string
}

// Loader loads every item of one source.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Mutator executes a plan against the stored side.
type Mutator[T any] interface {
	Apply(ctx context.Context, plan *Plan[T]) error
}
