package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category groups event types for dispatch.
type Category int

const (
	CategoryOther Category = iota
	CategoryCreated
	CategoryRemoved
)

func (c Category) String() string {
	switch c {
	case CategoryCreated:
		return "created"
	case CategoryRemoved:
		return "removed"
	default:
		return "other"
	}
}

// Event types as sent by S3-compatible stores, without the "s3:" prefix.
const (
	ObjectCreatedPut                     = "ObjectCreated:Put"
	ObjectCreatedPost                    = "ObjectCreated:Post"
	ObjectCreatedCopy                    = "ObjectCreated:Copy"
	ObjectCreatedCompleteMultipartUpload = "ObjectCreated:CompleteMultipartUpload"
	ObjectRemovedDelete                  = "ObjectRemoved:Delete"
	ObjectRemovedDeleteMarkerCreated     = "ObjectRemoved:DeleteMarkerCreated"
)

// StorageEvent is one object-store change notification.
type StorageEvent struct {
	ID          string
	EventType   string
	Bucket      string
	ObjectKey   string
	Size        *int64
	ETag        string
	ContentType string
	EventTime   time.Time
	RawPayload  []byte

	// Source names the receiver that produced the event.
	Source string

	signature string
}

// Category classifies the event type.
func (e StorageEvent) Category() Category {
	switch {
	case strings.HasPrefix(e.EventType, "ObjectCreated:"):
		return CategoryCreated
	case strings.HasPrefix(e.EventType, "ObjectRemoved:"):
		return CategoryRemoved
	default:
		return CategoryOther
	}
}

// Signature identifies repeated notifications for the same object version.
// Removed events get a random suffix and never collide.
func Signature(e StorageEvent) string {
	size := ""
	if e.Size != nil {
		size = fmt.Sprintf("%d", *e.Size)
	}
	sig := e.Bucket + ":" + e.ObjectKey + ":" + e.ETag + ":" + size
	if e.Category() == CategoryRemoved {
		sig += ":" + uuid.NewString()
	}
	return sig
}

// NormalizeEventType trims the "s3:" prefix some producers add.
func NormalizeEventType(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "s3:")
}
