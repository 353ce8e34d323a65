package ingest

import "price-pipeline/feature/ledger"

// Outcome is the terminal result of processing one file.
type Outcome string

const (
	OutcomeSuccess   = Outcome(ledger.StatusSuccess)
	OutcomePartial   = Outcome(ledger.StatusPartial)
	OutcomeFailed    = Outcome(ledger.StatusFailed)
	OutcomeDuplicate = Outcome(ledger.StatusDuplicate)
	// OutcomeSkipped is returned for keys outside the pending prefix. It leaves no ledger row.
	OutcomeSkipped Outcome = "SKIPPED"
)

// FileRequest asks for one object to be processed.
type FileRequest struct {
	Key           string
	CorrelationID string
	// Force processes content the ledger has already seen.
	Force bool
}

// Result describes one processing attempt.
type Result struct {
	Key           string   `json:"key"`
	Company       string   `json:"company,omitempty"`
	Hash          string   `json:"hash,omitempty"`
	BatchID       string   `json:"batchId,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
	Attempt       int      `json:"attempt"`
	Outcome       Outcome  `json:"outcome"`
	Published     int      `json:"published"`
	Failed        int      `json:"failed"`
	Errors        []string `json:"errors,omitempty"`
	MovedTo       string   `json:"movedTo,omitempty"`
	// Reason is the categorized cause of a FAILED outcome.
	Reason error `json:"-"`
}
