// Package ledger is the durable idempotency record of processed files.
//
// The ledger is append-only: every processing attempt inserts one row and rows are
// never updated. The first row for a (path, hash) pair carries attempt 0 and is the
// authoritative outcome; duplicates and forced retries take the next attempt number.
package ledger
