package reconcile

// ReconcileResult is the reconciliation output for a single key.
type ReconcileResult struct {
	// Key is the entity identifier shared by both sources.
	Key string `json:"key"`

	// StoredPresent indicates whether the entity exists in the stored snapshot.
	StoredPresent bool `json:"stored_present"`

	// IncomingPresent indicates whether the entity exists in the incoming set.
	IncomingPresent bool `json:"incoming_present"`

	// Mismatch lists the fields that differ, e.g. "price: stored=10 incoming=12".
	Mismatch []string `json:"mismatch"`
}

// ActionType is the kind of mutation a plan calls for.
type ActionType string

const (
	// ActionAdd creates an entity present only in the incoming set.
	ActionAdd ActionType = "add"
	// ActionUpdate replaces an entity whose fields changed.
	ActionUpdate ActionType = "update"
	// ActionDelete removes an entity missing from the incoming set.
	ActionDelete ActionType = "delete"
)

// Action is a planned mutation.
type Action[T any] struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the entity identifier.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`

	// Item is the incoming entity for add and update, the stored one for delete.
	Item T `json:"-"`
}

// Plan holds results and planned actions, ordered by key.
type Plan[T any] struct {
	Results []ReconcileResult `json:"results"`
	Actions []Action[T]       `json:"actions"`
	Summary PlanSummary       `json:"summary"`
}

// PlanSummary provides aggregate counts for a plan.
type PlanSummary struct {
	TotalKeys int `json:"total_keys"`
	Adds      int `json:"adds"`
	Updates   int `json:"updates"`
	Deletes   int `json:"deletes"`
	Unchanged int `json:"unchanged"`
}

// IsEmpty reports whether the plan requires no mutation.
func (p *Plan[T]) IsEmpty() bool {
	return len(p.Actions) == 0
}

// Items returns the items of every action of type t, in key order.
func (p *Plan[T]) Items(t ActionType) []T {
	var out []T
	for _, a := range p.Actions {
		if a.Type == t {
			out = append(out, a.Item)
		}
	}
	return out
}

// Keys returns the keys of every action of type t, in key order.
func (p *Plan[T]) Keys(t ActionType) []string {
	var out []string
	for _, a := range p.Actions {
		if a.Type == t {
			out = append(out, a.Key)
		}
	}
	return out
}

// Options controls whether ApplyPlan executes.
type Options struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// Confirmed indicates the caller accepted the plan.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}
