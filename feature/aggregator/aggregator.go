package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"price-pipeline/core/broker"
	"price-pipeline/core/logger"
	"price-pipeline/core/metrics"
	"price-pipeline/feature/pricefile"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrInvalidMessage is returned for messages that cannot count toward a batch.
var ErrInvalidMessage = errors.New("invalid price item message")

// CompleteFunc receives a batch once all of its messages arrived.
type CompleteFunc func(ctx context.Context, b Batch) error

// ExpireFunc receives a batch that timed out incomplete.
type ExpireFunc func(ctx context.Context, b Batch) error

// Aggregator groups messages by batch id.
type Aggregator struct {
	cfg        Config
	onComplete CompleteFunc
	onExpire   ExpireFunc
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu         sync.Mutex
	store      Store
	tombstones map[string]time.Time
}

// New creates an aggregator. A nil store uses a MemoryStore.
func New(cfg Config, store Store, onComplete CompleteFunc, onExpire ExpireFunc, l *zap.Logger, m *metrics.Metrics) *Aggregator {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Aggregator{
		cfg:        cfg,
		onComplete: onComplete,
		onExpire:   onExpire,
		logger:     logger.Component(l, "aggregator"),
		metrics:    m,
		now:        time.Now,
		store:      store,
		tombstones: make(map[string]time.Time),
	}
}

// Add accumulates msg. It reports whether msg completed its batch, in which case the
// completion callback has already run. Redelivered messages and messages for
// finished batches are ignored.
func (a *Aggregator) Add(ctx context.Context, msg pricefile.PriceItemMessage) (bool, error) {
	if err := msg.Check(); err != nil {
		a.logger.Warn("Dropping invalid message",
			zap.String("message_id", msg.MessageID),
			zap.String("batch_id", msg.BatchID),
			zap.Error(err),
		)
		return false, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	now := a.now()
	a.mu.Lock()
	if _, finished := a.tombstones[msg.BatchID]; finished {
		a.mu.Unlock()
		a.logger.Debug("Ignoring message for finished batch", zap.String("batch_id", msg.BatchID))
		return false, nil
	}
	c, ok := a.store.Get(msg.BatchID)
	if !ok {
		c = newContext(msg, now)
		a.store.Put(msg.BatchID, c)
	}
	open := a.store.Len()
	a.mu.Unlock()
	a.metrics.SetOpenBatches(open)

	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return false, nil
	}
	if msg.MessageID != "" {
		if _, dup := c.seen[msg.MessageID]; dup {
			c.mu.Unlock()
			a.logger.Debug("Ignoring redelivered message", zap.String("message_id", msg.MessageID))
			return false, nil
		}
		c.seen[msg.MessageID] = struct{}{}
	}
	c.messages = append(c.messages, msg)
	if len(c.messages) < c.total {
		c.mu.Unlock()
		return false, nil
	}
	c.done = true
	batch := c.batch()
	c.mu.Unlock()

	a.retire(batch.ID, now)
	a.logger.Info("Batch complete",
		zap.String("batch_id", batch.ID),
		zap.String("company", batch.Company),
		zap.Int("items", batch.Received()),
	)
	if a.onComplete != nil {
		if err := a.onComplete(ctx, batch); err != nil {
			a.metrics.BatchFinished("failed")
			a.logger.Error("Batch completion failed", zap.String("batch_id", batch.ID), zap.Error(err))
			return true, nil
		}
	}
	a.metrics.BatchFinished("completed")
	return true, nil
}

// retire removes a finished batch and remembers its id.
func (a *Aggregator) retire(batchID string, now time.Time) {
	a.mu.Lock()
	a.tombstones[batchID] = now
	a.store.Delete(batchID)
	open := a.store.Len()
	a.mu.Unlock()
	a.metrics.SetOpenBatches(open)
}

// Sweep expires batches older than the batch timeout and forgets finished ids older
// than the completion TTL. It returns the number of expired batches.
func (a *Aggregator) Sweep(ctx context.Context, now time.Time) int {
	var expired []Batch

	a.mu.Lock()
	a.store.Range(func(id string, c *Context) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.done || now.Sub(c.firstSeen) <= a.cfg.BatchTimeout {
			return
		}
		c.done = true
		expired = append(expired, c.batch())
	})
	for _, b := range expired {
		a.store.Delete(b.ID)
		a.tombstones[b.ID] = now
	}
	for id, at := range a.tombstones {
		if now.Sub(at) > a.cfg.CompletionTTL {
			delete(a.tombstones, id)
		}
	}
	open := a.store.Len()
	a.mu.Unlock()
	a.metrics.SetOpenBatches(open)

	for _, b := range expired {
		a.logger.Warn("Batch expired incomplete",
			zap.String("batch_id", b.ID),
			zap.String("company", b.Company),
			zap.Int("received", b.Received()),
			zap.Int("total", b.Total),
		)
		a.metrics.BatchFinished("expired")
		if a.onExpire == nil {
			continue
		}
		if err := a.onExpire(ctx, b); err != nil {
			a.logger.Error("Failed to record expired batch", zap.String("batch_id", b.ID), zap.Error(err))
		}
	}
	return len(expired)
}

// RunSweeper sweeps every interval until ctx ends.
func (a *Aggregator) RunSweeper(ctx context.Context) {
	interval := a.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep(ctx, a.now())
		}
	}
}

// Open lists live batches, oldest first.
func (a *Aggregator) Open() []Status {
	a.mu.Lock()
	out := make([]Status, 0, a.store.Len())
	a.store.Range(func(id string, c *Context) {
		c.mu.Lock()
		out = append(out, Status{
			BatchID:   id,
			Company:   c.company,
			Received:  len(c.messages),
			Total:     c.total,
			FirstSeen: c.firstSeen,
		})
		c.mu.Unlock()
	})
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

// HandleDelivery feeds a broker delivery into the aggregator. Undecodable and
// invalid messages are rejected without requeue.
func (a *Aggregator) HandleDelivery(ctx context.Context, d amqp.Delivery) broker.Disposition {
	msg, err := pricefile.DecodeMessage(d.Body)
	if err != nil {
		a.logger.Warn("Rejecting undecodable message", zap.String("message_id", d.MessageId), zap.Error(err))
		return broker.Reject
	}
	if msg.MessageID == "" {
		msg.MessageID = d.MessageId
	}
	if _, err := a.Add(ctx, msg); err != nil {
		return broker.Reject
	}
	return broker.Ack
}
