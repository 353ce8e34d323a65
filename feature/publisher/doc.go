// Package publisher publishes price files to the broker one message per item.
//
// Each item is retried on its own with the configured backoff policy. A batch tallies
// per-item outcomes and never aborts because of a single failed item.
package publisher
