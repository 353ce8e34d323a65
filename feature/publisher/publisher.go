package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"price-pipeline/core/broker"
	"price-pipeline/core/errs"
	"price-pipeline/core/logger"
	"price-pipeline/core/metrics"
	"price-pipeline/core/retry"
	"price-pipeline/core/utils"
	"price-pipeline/feature/pricefile"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender delivers one message to an exchange. *broker.Publisher implements it.
type Sender interface {
	Publish(ctx context.Context, exchange, routingKey string, msg broker.Message) error
}

// BatchRequest is the set of valid items of one file.
type BatchRequest struct {
	BatchID         string
	Company         string
	CorrelationID   string
	FileProcessedAt pricefile.Timestamp
	Items           []pricefile.PriceItem
}

// BatchResult tallies a batch publish. Errors are in item order.
type BatchResult struct {
	BatchID   string
	Published int
	Failed    int
	Errors    []string
}

// Publisher publishes price items to the topic exchange.
type Publisher struct {
	sender   Sender
	exchange string
	cfg      Config
	limiter  *rate.Limiter
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New creates a publisher sending to exchange.
func New(sender Sender, exchange string, cfg Config, l *zap.Logger, m *metrics.Metrics) *Publisher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	p := &Publisher{
		sender:   sender,
		exchange: exchange,
		cfg:      cfg,
		logger:   logger.Component(l, "publisher"),
		metrics:  m,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return p
}

// RoutingKey returns the per-company routing key, e.g. "price.acme".
func RoutingKey(company string) string {
	return "price." + utils.NormalizeCompany(company)
}

// PublishItem publishes one message, retrying transient failures. Once the attempts
// are spent the error is of kind errs.KindTransientPublish and wraps the last cause.
func (p *Publisher) PublishItem(ctx context.Context, msg pricefile.PriceItemMessage, correlationID string) error {
	body, err := msg.Encode()
	if err != nil {
		return errs.New(errs.KindItemInvalid,
			errs.WithMessage("failed to encode item "+msg.ItemID),
			errs.WithCause(err))
	}

	out := broker.Message{
		ID:            msg.MessageID,
		CorrelationID: correlationID,
		Body:          body,
		Headers: map[string]any{
			"batchId": msg.BatchID,
			"company": msg.Company,
		},
	}
	key := RoutingKey(msg.Company)

	err = retry.Do(ctx, p.cfg.Retry, func() error {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
		}
		err := p.sender.Publish(ctx, p.exchange, key, out)
		if errors.Is(err, broker.ErrUnroutable) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, next time.Duration) {
		p.metrics.PublishRetried()
		p.logger.Warn("Publish failed, retrying",
			zap.String("message_id", msg.MessageID),
			zap.String("routing_key", key),
			zap.Duration("next_attempt_in", next),
			zap.Error(err),
		)
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("publish of item %s interrupted: %w", msg.ItemID, err)
	}
	return errs.New(errs.KindTransientPublish,
		errs.WithMessage("failed to publish item "+msg.ItemID),
		errs.WithCause(err))
}

// PublishBatch publishes every item as its own message on a bounded worker pool.
// Item failures are tallied, not fatal. An error is returned only when the batch as a
// whole failed: the context ended, or no item got through and every failure was a
// broker failure.
func (p *Publisher) PublishBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	res := BatchResult{BatchID: req.BatchID}
	total := len(req.Items)
	if total == 0 {
		return res, nil
	}

	company := utils.NormalizeCompany(req.Company)
	failures := make([]error, total)
	itemIDs := make([]string, total)

	wp := pool.New().WithMaxGoroutines(p.cfg.Workers)
	for i := range req.Items {
		item := req.Items[i]
		itemID := item.ItemID
		if itemID == "" {
			itemID = uuid.NewString()
		}
		itemIDs[i] = itemID

		wp.Go(func() {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return
			}
			msg := pricefile.PriceItemMessage{
				MessageID:         uuid.NewString(),
				BatchID:           req.BatchID,
				TotalItemsInBatch: total,
				ItemID:            itemID,
				Company:           company,
				FileProcessedAt:   req.FileProcessedAt,
				Item:              &item,
			}
			failures[i] = p.PublishItem(ctx, msg, req.CorrelationID)
		})
	}
	wp.Wait()

	transient := 0
	var lastErr error
	for i, err := range failures {
		if err == nil {
			res.Published++
			continue
		}
		res.Failed++
		lastErr = err
		if errs.IsKind(err, errs.KindTransientPublish) {
			transient++
		}
		res.Errors = append(res.Errors, fmt.Sprintf("item %s: %v", itemIDs[i], err))
		p.logger.Warn("Item publish failed",
			zap.String("batch_id", req.BatchID),
			zap.String("item_id", itemIDs[i]),
			zap.Error(err),
		)
	}
	p.metrics.ItemsPublished(res.Published, res.Failed)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("batch %s interrupted: %w", req.BatchID, err)
	}
	if res.Published == 0 && transient == total {
		return res, errs.New(errs.KindTransientPublish,
			errs.WithMessage("broker unavailable for batch "+req.BatchID),
			errs.WithCause(lastErr))
	}

	p.logger.Info("Batch published",
		zap.String("batch_id", req.BatchID),
		zap.String("company", company),
		zap.Int("published", res.Published),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
