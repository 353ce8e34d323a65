package events

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"price-pipeline/core/utils"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7/pkg/notification"
)

// ErrEmptyNotification is returned when a payload carries no usable record.
var ErrEmptyNotification = errors.New("notification has no records")

type notificationEnvelope struct {
	EventName string            `json:"EventName"`
	Key       string            `json:"Key"`
	Records   []json.RawMessage `json:"Records"`
}

type notificationRecord struct {
	EventTime string `json:"eventTime"`
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key         string `json:"key"`
			Size        any    `json:"size"`
			ETag        string `json:"eTag"`
			ContentType string `json:"contentType"`
		} `json:"object"`
	} `json:"s3"`
}

// DecodeNotification decodes an S3 event notification into one event per record.
// The MinIO envelope with top-level EventName and Key is accepted as well.
func DecodeNotification(payload []byte) ([]StorageEvent, error) {
	var env notificationEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}

	out := make([]StorageEvent, 0, len(env.Records))
	for i, raw := range env.Records {
		var rec notificationRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", i, err)
		}

		e := StorageEvent{
			ID:          uuid.NewString(),
			EventType:   NormalizeEventType(rec.EventName),
			Bucket:      rec.S3.Bucket.Name,
			ObjectKey:   unescapeKey(rec.S3.Object.Key),
			ETag:        strings.Trim(rec.S3.Object.ETag, `"`),
			ContentType: rec.S3.Object.ContentType,
			EventTime:   parseEventTime(rec.EventTime),
			RawPayload:  []byte(raw),
		}
		if size, ok := utils.ToInt64(rec.S3.Object.Size); ok {
			e.Size = &size
		}
		out = append(out, e)
	}

	if len(out) == 0 && env.Key != "" {
		bucket, key, _ := strings.Cut(env.Key, "/")
		out = append(out, StorageEvent{
			ID:         uuid.NewString(),
			EventType:  NormalizeEventType(env.EventName),
			Bucket:     bucket,
			ObjectKey:  unescapeKey(key),
			EventTime:  time.Now().UTC(),
			RawPayload: payload,
		})
	}

	if len(out) == 0 {
		return nil, ErrEmptyNotification
	}
	return out, nil
}

// FromMinio converts events received through bucket-notification listening.
func FromMinio(info notification.Info) []StorageEvent {
	out := make([]StorageEvent, 0, len(info.Records))
	for _, rec := range info.Records {
		raw, _ := json.Marshal(rec)
		e := StorageEvent{
			ID:          uuid.NewString(),
			EventType:   NormalizeEventType(rec.EventName),
			Bucket:      rec.S3.Bucket.Name,
			ObjectKey:   unescapeKey(rec.S3.Object.Key),
			ETag:        rec.S3.Object.ETag,
			ContentType: rec.S3.Object.ContentType,
			EventTime:   parseEventTime(rec.EventTime),
			RawPayload:  raw,
			Source:      SourceListener,
		}
		size := rec.S3.Object.Size
		e.Size = &size
		out = append(out, e)
	}
	return out
}

func unescapeKey(key string) string {
	if unescaped, err := url.QueryUnescape(key); err == nil {
		return unescaped
	}
	return key
}

func parseEventTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
