package events

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FailedEvent is the audit trail of an event whose handling failed.
type FailedEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	EventID   string         `gorm:"size:64;index" json:"eventId"`
	EventType string         `gorm:"size:64" json:"eventType"`
	Bucket    string         `gorm:"size:255" json:"bucket"`
	ObjectKey string         `gorm:"size:1024" json:"objectKey"`
	Source    string         `gorm:"size:32" json:"source"`
	Error     string         `gorm:"type:text" json:"error"`
	Payload   datatypes.JSON `json:"payload"`
	FailedAt  time.Time      `gorm:"index" json:"failedAt"`
}

// TableName overrides the table name.
func (FailedEvent) TableName() string {
	return "failed_events"
}

// AuditStore persists failed events.
type AuditStore interface {
	Record(ctx context.Context, e StorageEvent, cause error) error
	Recent(ctx context.Context, limit int) ([]FailedEvent, error)
}

// GormAuditStore stores failed events with gorm.
type GormAuditStore struct {
	db *gorm.DB
}

// NewGormAuditStore creates an audit store on db.
func NewGormAuditStore(db *gorm.DB) *GormAuditStore {
	return &GormAuditStore{db: db}
}

// Record inserts one audit row.
func (s *GormAuditStore) Record(ctx context.Context, e StorageEvent, cause error) error {
	row := FailedEvent{
		EventID:   e.ID,
		EventType: e.EventType,
		Bucket:    e.Bucket,
		ObjectKey: e.ObjectKey,
		Source:    e.Source,
		FailedAt:  time.Now().UTC(),
	}
	if cause != nil {
		row.Error = cause.Error()
	}
	if len(e.RawPayload) > 0 {
		row.Payload = datatypes.JSON(e.RawPayload)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record failed event %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns the latest audit rows, newest first.
func (s *GormAuditStore) Recent(ctx context.Context, limit int) ([]FailedEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []FailedEvent
	err := s.db.WithContext(ctx).Order("failed_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
