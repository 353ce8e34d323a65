// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client to provide a simplified interface for the operations
// the price pipeline needs. This abstraction supports both AWS S3 and self-hosted
// MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (see core/storage/mocks).
//
// # ObjectStore
//
// ObjectStore binds a Client to the price-list bucket:
//
//   - Open: streams object content without buffering it.
//   - Hash: SHA-256 of the content, used as the idempotency key with the path.
//   - Move: server-side copy and delete, used for pending -> processed/unprocessed.
//   - EnsureBucket: creates the bucket on first start.
//
// Relocate, HasPrefix and FolderOf implement the key layout
// <prefix>/<company-folder>/<file>.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	store := storage.NewObjectStore(client, cfg.Storage.Bucket)
//	sum, err := store.Hash(ctx, "pending/acme/prices.json")
package storage
