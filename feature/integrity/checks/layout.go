package checks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"price-pipeline/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// CheckLayout returns the prefixes that have no object under them. An empty prefix
// has no folder marker either, so a fresh bucket reports all of them.
func CheckLayout(ctx context.Context, client storage.Client, bucket string, prefixes []string) ([]string, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	var missing []string
	for _, prefix := range prefixes {
		opts := minio.ListObjectsOptions{
			Prefix:    folder(prefix),
			Recursive: false,
			MaxKeys:   1,
		}

		found := false
		for obj := range client.ListObjects(ctx, bucket, opts) {
			if obj.Err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
			}
			found = true
			break
		}
		if !found {
			missing = append(missing, prefix)
		}
	}
	return missing, nil
}

// FixLayout writes an empty folder marker for each missing prefix.
func FixLayout(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger, missing []string) error {
	for _, prefix := range missing {
		_, err := client.PutObject(ctx, bucket, folder(prefix), bytes.NewReader(nil), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create folder", zap.String("folder", prefix), zap.Error(err))
			return err
		}
		logger.Info("Created missing folder", zap.String("folder", prefix))
	}
	return nil
}

func folder(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	return prefix + "/"
}
