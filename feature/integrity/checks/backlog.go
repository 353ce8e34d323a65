package checks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"price-pipeline/core/storage"

	"github.com/minio/minio-go/v7"
)

// BacklogReport describes files waiting under the pending prefix.
type BacklogReport struct {
	Pending int        `json:"pending"`
	Oldest  *time.Time `json:"oldest,omitempty"`
	// Stale lists keys older than the threshold. A file normally leaves pending
	// within seconds, so these most likely missed their notification.
	Stale []string `json:"stale"`
}

// CheckBacklog lists every file under prefix and reports those last modified before
// now-olderThan. Folder markers are ignored.
func CheckBacklog(ctx context.Context, client storage.Client, bucket, prefix string, olderThan time.Duration, now time.Time) (*BacklogReport, error) {
	report := &BacklogReport{Stale: []string{}}
	cutoff := now.Add(-olderThan)

	opts := minio.ListObjectsOptions{Prefix: folder(prefix), Recursive: true}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list pending files: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		report.Pending++
		modified := obj.LastModified
		if report.Oldest == nil || modified.Before(*report.Oldest) {
			report.Oldest = &modified
		}
		if modified.Before(cutoff) {
			report.Stale = append(report.Stale, obj.Key)
		}
	}

	sort.Strings(report.Stale)
	return report, nil
}
