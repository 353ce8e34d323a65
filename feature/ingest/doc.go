// Package ingest runs the per-file pipeline: ownership check, content hash,
// idempotency check, structural validation, streamed parse, batch publish and
// bookkeeping in the ledger and the bucket layout.
package ingest
