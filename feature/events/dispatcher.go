package events

import (
	"context"

	"price-pipeline/core/logger"

	"go.uber.org/zap"
)

// ProcessFunc handles an object-created event.
type ProcessFunc func(ctx context.Context, e StorageEvent) error

// Dispatcher routes events by category. Created objects are processed; removals and
// other types are logged and ignored. Failures are written to the audit store.
type Dispatcher struct {
	bucket  string
	process ProcessFunc
	audit   AuditStore
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher. Events for buckets other than bucket are ignored
// when bucket is set. audit may be nil.
func NewDispatcher(bucket string, process ProcessFunc, audit AuditStore, l *zap.Logger) *Dispatcher {
	return &Dispatcher{
		bucket:  bucket,
		process: process,
		audit:   audit,
		logger:  logger.Component(l, "dispatcher"),
	}
}

// Handle implements Handler.
func (d *Dispatcher) Handle(ctx context.Context, e StorageEvent) error {
	l := d.logger.With(
		zap.String("event_id", e.ID),
		zap.String("event_type", e.EventType),
		zap.String("key", e.ObjectKey),
	)

	if d.bucket != "" && e.Bucket != "" && e.Bucket != d.bucket {
		l.Debug("Ignoring event for foreign bucket", zap.String("bucket", e.Bucket))
		return nil
	}

	switch e.Category() {
	case CategoryCreated:
		if err := d.process(ctx, e); err != nil {
			d.recordFailure(ctx, l, e, err)
			return err
		}
		return nil
	case CategoryRemoved:
		l.Info("Object removed, nothing to do")
		return nil
	default:
		l.Debug("Ignoring unsupported event type")
		return nil
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, l *zap.Logger, e StorageEvent, cause error) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Record(context.WithoutCancel(ctx), e, cause); err != nil {
		l.Error("Failed to audit event failure", zap.Error(err))
	}
}
