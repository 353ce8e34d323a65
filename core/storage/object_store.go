package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ObjectStore binds a Client to one bucket and offers the file operations the
// pipeline needs: streaming reads, content hashing and prefix moves.
type ObjectStore struct {
	client Client
	bucket string
}

// NewObjectStore creates an ObjectStore for the given bucket.
func NewObjectStore(client Client, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

// Bucket returns the bucket name.
func (s *ObjectStore) Bucket() string {
	return s.bucket
}

// Client returns the underlying storage client.
func (s *ObjectStore) Client() Client {
	return s.client
}

// Open returns a stream over the object content. Callers must close it.
func (s *ObjectStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return rc, nil
}

// Hash streams the object and returns the hex SHA-256 of its content.
func (s *ObjectStore) Hash(ctx context.Context, key string) (string, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", key, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Move copies the object server-side to dstKey and removes the source.
func (s *ObjectStore) Move(ctx context.Context, srcKey, dstKey string) error {
	if srcKey == dstKey {
		return nil
	}

	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey},
	)
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", srcKey, dstKey, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, srcKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s after copy: %w", srcKey, err)
	}
	return nil
}

// Exists reports whether key is present in the bucket.
func (s *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", key, err)
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Relocate rewrites key from one top-level prefix to another, keeping the rest of
// the path. A key outside fromPrefix is placed under toPrefix as-is.
// Example: Relocate("pending/acme/a.json", "pending", "processed") -> "processed/acme/a.json".
func Relocate(key, fromPrefix, toPrefix string) string {
	rest := key
	from := strings.Trim(fromPrefix, "/")
	if from != "" && strings.HasPrefix(key, from+"/") {
		rest = strings.TrimPrefix(key, from+"/")
	}
	return path.Join(strings.Trim(toPrefix, "/"), rest)
}

// HasPrefix reports whether key sits under the given top-level prefix.
func HasPrefix(key, prefix string) bool {
	p := strings.Trim(prefix, "/")
	if p == "" {
		return true
	}
	return strings.HasPrefix(key, p+"/")
}

// FolderOf returns the first path segment below prefix, e.g. the company folder
// of "pending/acme/a.json" is "acme". It returns "" when there is no such folder.
func FolderOf(key, prefix string) string {
	if !HasPrefix(key, prefix) {
		return ""
	}
	rest := key
	if p := strings.Trim(prefix, "/"); p != "" {
		rest = strings.TrimPrefix(key, p+"/")
	}
	idx := strings.Index(rest, "/")
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}
