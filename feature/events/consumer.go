package events

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"price-pipeline/core/logger"
	"price-pipeline/core/metrics"

	"go.uber.org/zap"
)

// Handler handles one dequeued event.
type Handler interface {
	Handle(ctx context.Context, e StorageEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e StorageEvent) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, e StorageEvent) error {
	return f(ctx, e)
}

// Consumer is the single goroutine draining a Queue. Events are handled strictly one
// at a time, so files are never orchestrated concurrently within a process.
type Consumer struct {
	queue   *Queue
	handler Handler
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewConsumer creates a consumer for queue.
func NewConsumer(queue *Queue, handler Handler, l *zap.Logger, m *metrics.Metrics) *Consumer {
	return &Consumer{
		queue:   queue,
		handler: handler,
		logger:  logger.Component(l, "event_consumer"),
		metrics: m,
	}
}

// Run drains the queue until ctx ends or the queue is closed. Run must not be called
// more than once at a time for the same queue.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Event consumer started")
	defer c.logger.Info("Event consumer stopped")

	for {
		e, err := c.queue.Take(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.metrics.SetQueueDepth(c.queue.Len())

		if err := c.handle(ctx, e); err != nil {
			c.logger.Error("Event handling failed",
				zap.String("event_id", e.ID),
				zap.String("key", e.ObjectKey),
				zap.Error(err),
			)
		}
		c.queue.Complete(e)
	}
}

func (c *Consumer) handle(ctx context.Context, e StorageEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling event %s: %v", e.ID, r)
			c.logger.Error("Recovered panic in event handler", zap.ByteString("stack", debug.Stack()))
		}
	}()
	return c.handler.Handle(ctx, e)
}
