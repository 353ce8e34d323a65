package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"price-pipeline/core/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Disposition tells the consumer how to settle a delivery.
type Disposition int

const (
	// Ack removes the delivery from the queue.
	Ack Disposition = iota
	// Reject drops the delivery without requeue, routing it to the dead letter exchange.
	Reject
	// Requeue returns the delivery to the queue for another attempt.
	Requeue
)

// Handler processes one delivery.
type Handler func(ctx context.Context, d amqp.Delivery) Disposition

// Consumer drains a queue with a fixed number of workers and reconnects when the
// channel drops.
type Consumer struct {
	conn     *Connection
	queue    string
	tag      string
	workers  int
	prefetch int
	delay    time.Duration
	logger   *zap.Logger
}

// NewConsumer creates a consumer for queue.
func NewConsumer(conn *Connection, queue, tag string, workers int, l *zap.Logger) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		conn:     conn,
		queue:    queue,
		tag:      tag,
		workers:  workers,
		prefetch: conn.cfg.Prefetch,
		delay:    conn.cfg.ReconnectDelay,
		logger:   logger.Component(l, "consumer").With(zap.String("queue", queue)),
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	for {
		err := c.consumeOnce(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		c.logger.Warn("Consumer interrupted, reconnecting", zap.Error(err), zap.Duration("delay", c.delay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.delay):
		}
	}
}

func (c *Consumer) consumeOnce(ctx context.Context, handle Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set qos: %w", err)
		}
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", c.queue, err)
	}
	c.logger.Info("Consuming", zap.Int("workers", c.workers))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				c.settle(d, handle(ctx, d))
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("delivery channel for %s closed", c.queue)
}

func (c *Consumer) settle(d amqp.Delivery, disp Disposition) {
	var err error
	switch disp {
	case Ack:
		err = d.Ack(false)
	case Reject:
		err = d.Nack(false, false)
	case Requeue:
		err = d.Nack(false, true)
	}
	if err != nil {
		c.logger.Warn("Failed to settle delivery", zap.String("message_id", d.MessageId), zap.Error(err))
	}
}
