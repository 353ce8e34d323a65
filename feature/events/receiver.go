package events

import (
	"context"
	"time"

	"price-pipeline/core/broker"
	"price-pipeline/core/logger"
	"price-pipeline/core/metrics"
	"price-pipeline/core/storage"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Event sources.
const (
	SourceWebhook  = "webhook"
	SourceAMQP     = "amqp"
	SourceListener = "listener"
	SourceManual   = "manual"
)

// Receiver feeds decoded notifications from any producer into the queue.
type Receiver struct {
	queue   *Queue
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewReceiver creates a receiver for queue.
func NewReceiver(queue *Queue, l *zap.Logger, m *metrics.Metrics) *Receiver {
	return &Receiver{
		queue:   queue,
		logger:  logger.Component(l, "receiver"),
		metrics: m,
	}
}

// Accept enqueues events and returns how many the queue took.
func (r *Receiver) Accept(events []StorageEvent, source string) int {
	accepted := 0
	for _, e := range events {
		if e.Source == "" {
			e.Source = source
		}
		if r.queue.AddEvent(e) {
			accepted++
			r.metrics.EventReceived(source)
			continue
		}

		reason := "duplicate"
		if r.queue.Stopped() {
			reason = "stopped"
		}
		r.metrics.EventDropped(reason)
		r.logger.Debug("Event not enqueued",
			zap.String("reason", reason),
			zap.String("key", e.ObjectKey),
			zap.String("etag", e.ETag),
		)
	}
	r.metrics.SetQueueDepth(r.queue.Len())
	return accepted
}

// HandleDelivery decodes a storage notification from the broker. Undecodable payloads
// are rejected to the dead letter route.
func (r *Receiver) HandleDelivery(_ context.Context, d amqp.Delivery) broker.Disposition {
	events, err := DecodeNotification(d.Body)
	if err != nil {
		r.logger.Warn("Rejecting undecodable storage notification",
			zap.String("message_id", d.MessageId),
			zap.Error(err),
		)
		return broker.Reject
	}
	r.Accept(events, SourceAMQP)
	return broker.Ack
}

// Listen subscribes to bucket notifications through the object store and feeds them
// into the queue until ctx ends. The subscription is renewed after retryDelay when the
// store closes it.
func (r *Receiver) Listen(ctx context.Context, client storage.Client, bucket, prefix string, retryDelay time.Duration) {
	kinds := []string{"s3:ObjectCreated:*", "s3:ObjectRemoved:*"}
	for {
		r.logger.Info("Listening for bucket notifications", zap.String("bucket", bucket), zap.String("prefix", prefix))
		for info := range client.ListenBucketNotification(ctx, bucket, prefix, "", kinds) {
			if info.Err != nil {
				r.logger.Warn("Bucket notification error", zap.Error(info.Err))
				continue
			}
			r.Accept(FromMinio(info), SourceListener)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}
