package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"price-pipeline/core/errs"
	"price-pipeline/core/logger"
	"price-pipeline/core/metrics"
	"price-pipeline/core/storage"
	"price-pipeline/core/utils"
	"price-pipeline/feature/events"
	"price-pipeline/feature/ledger"
	"price-pipeline/feature/pricefile"
	"price-pipeline/feature/publisher"
	"price-pipeline/feature/sellers"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxErrorMessages bounds how many item errors are copied onto the ledger row.
const maxErrorMessages = 20

// Ledger is the idempotency store the orchestrator writes to.
type Ledger interface {
	Exists(ctx context.Context, path, hash string) (bool, error)
	Record(ctx context.Context, rec *ledger.ProcessedFileRecord) error
}

// SellerResolver resolves a company folder to an active seller.
type SellerResolver interface {
	Resolve(ctx context.Context, folder string) (sellers.Seller, error)
}

// BatchPublisher publishes the valid items of a file.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, req publisher.BatchRequest) (publisher.BatchResult, error)
}

// Layout names the bucket prefixes files move between.
type Layout struct {
	Pending     string
	Processed   string
	Unprocessed string
}

// LayoutFrom reads the prefixes from the storage configuration.
func LayoutFrom(cfg storage.Config) Layout {
	return Layout{Pending: cfg.PendingPrefix, Processed: cfg.ProcessedPrefix, Unprocessed: cfg.UnprocessedPrefix}
}

// Orchestrator processes price files end to end.
type Orchestrator struct {
	store     *storage.ObjectStore
	layout    Layout
	ledger    Ledger
	sellers   SellerResolver
	publisher BatchPublisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewOrchestrator wires the orchestrator.
func NewOrchestrator(store *storage.ObjectStore, layout Layout, l Ledger, s SellerResolver, p BatchPublisher, log *zap.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		store:     store,
		layout:    layout,
		ledger:    l,
		sellers:   s,
		publisher: p,
		logger:    logger.Component(log, "orchestrator"),
		metrics:   m,
	}
}

// ProcessEvent adapts Process to the event dispatcher. The event id is the correlation id.
func (o *Orchestrator) ProcessEvent(ctx context.Context, e events.StorageEvent) error {
	_, err := o.Process(ctx, FileRequest{Key: e.ObjectKey, CorrelationID: e.ID})
	return err
}

// Process runs one file through the pipeline. Terminal outcomes are returned as
// values. An error with a nil result means infrastructure failed before anything was
// recorded; an error with a result means the outcome was recorded but the file could
// not be moved.
func (o *Orchestrator) Process(ctx context.Context, req FileRequest) (*Result, error) {
	res := &Result{Key: req.Key, CorrelationID: req.CorrelationID}
	l := o.logger.With(zap.String("key", req.Key), zap.String("correlation_id", req.CorrelationID))

	if !storage.HasPrefix(req.Key, o.layout.Pending) {
		l.Debug("Skipping object outside the pending prefix")
		res.Outcome = OutcomeSkipped
		return res, nil
	}
	res.Company = utils.NormalizeCompany(storage.FolderOf(req.Key, o.layout.Pending))

	meta, reason, err := o.checkOwnership(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if res.Hash, err = o.store.Hash(ctx, req.Key); err != nil {
		return nil, err
	}
	l = l.With(zap.String("company", res.Company), zap.String("hash", res.Hash))
	if reason != nil {
		return o.fail(ctx, l, res, reason)
	}

	seen, err := o.ledger.Exists(ctx, req.Key, res.Hash)
	if err != nil {
		return nil, err
	}
	if seen && !req.Force {
		res.Outcome = OutcomeDuplicate
		if err := o.finish(ctx, res, ""); err != nil {
			return nil, err
		}
		l.Info("Duplicate content, already processed")
		return res, nil
	}

	if reason, err := o.validate(ctx, req.Key); err != nil {
		return nil, err
	} else if reason != nil {
		return o.fail(ctx, l, res, reason)
	}

	items, itemErrors, reason, err := o.parse(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		return o.fail(ctx, l, res, reason)
	}
	res.Errors = itemErrors
	res.Failed = len(itemErrors)

	if len(items) > 0 {
		res.BatchID = uuid.NewString()
		batch, err := o.publisher.PublishBatch(ctx, publisher.BatchRequest{
			BatchID:         res.BatchID,
			Company:         res.Company,
			CorrelationID:   req.CorrelationID,
			FileProcessedAt: meta.FileProcessedAt,
			Items:           items,
		})
		if err != nil {
			// The whole batch is lost; every collected item counts as failed.
			res.Published = 0
			res.Failed = len(items) + len(itemErrors)
			res.Errors = append(res.Errors, "batch publish failed: "+err.Error())
			res.Reason = err
		} else {
			res.Published = batch.Published
			res.Failed += batch.Failed
			res.Errors = append(res.Errors, batch.Errors...)
		}
	}

	switch {
	case res.Published > 0 && res.Failed == 0:
		res.Outcome = OutcomeSuccess
	case res.Published > 0:
		res.Outcome = OutcomePartial
	default:
		res.Outcome = OutcomeFailed
		if res.Reason == nil {
			res.Reason = errs.New(errs.KindItemInvalid, errs.WithMessage("no item could be published"))
		}
	}

	message := summarize(res.Errors)
	if message == "" && res.Outcome == OutcomeFailed {
		message = "file contains no items"
	}
	if err := o.finish(ctx, res, message); err != nil {
		return nil, err
	}

	target := o.layout.Processed
	if res.Outcome == OutcomeFailed {
		target = o.layout.Unprocessed
	}
	l.Info("File processed",
		zap.String("outcome", string(res.Outcome)),
		zap.String("batch_id", res.BatchID),
		zap.Int("published", res.Published),
		zap.Int("failed", res.Failed),
	)
	return res, o.move(ctx, res, target)
}

// checkOwnership returns a reason when the folder, the embedded company and the
// seller directory disagree.
func (o *Orchestrator) checkOwnership(ctx context.Context, key string) (*pricefile.Metadata, *errs.E, error) {
	folder := storage.FolderOf(key, o.layout.Pending)
	if folder == "" {
		return nil, ownership("file is not inside a company folder"), nil
	}

	rc, err := o.store.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	meta, err := pricefile.ExtractMetadata(rc)
	rc.Close()
	if err != nil {
		return nil, structural(err.Error()), nil
	}

	if utils.NormalizeCompany(meta.Company) != utils.NormalizeCompany(folder) {
		return meta, ownership(fmt.Sprintf("folder %q does not match company %q", folder, meta.Company)), nil
	}

	if _, err := o.sellers.Resolve(ctx, folder); err != nil {
		if errors.Is(err, sellers.ErrUnknownSeller) || errors.Is(err, sellers.ErrInactiveSeller) {
			return meta, ownership(err.Error()), nil
		}
		return meta, nil, err
	}
	return meta, nil, nil
}

func (o *Orchestrator) validate(ctx context.Context, key string) (*errs.E, error) {
	rc, err := o.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ok, err := pricefile.ValidateStructure(rc)
	if err != nil {
		return structural(err.Error()), nil
	}
	if !ok {
		return structural("metadata or items missing"), nil
	}
	return nil, nil
}

func (o *Orchestrator) parse(ctx context.Context, key string) ([]pricefile.PriceItem, []string, *errs.E, error) {
	rc, err := o.store.Open(ctx, key)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rc.Close()

	var items []pricefile.PriceItem
	var itemErrors []string
	_, err = pricefile.ParseStream(rc,
		func(item pricefile.PriceItem) { items = append(items, item) },
		func(msg string) { itemErrors = append(itemErrors, msg) },
	)
	if err != nil {
		return nil, nil, structural(err.Error()), nil
	}
	return items, itemErrors, nil, nil
}

func (o *Orchestrator) fail(ctx context.Context, l *zap.Logger, res *Result, reason *errs.E) (*Result, error) {
	res.Outcome = OutcomeFailed
	res.Reason = reason
	if err := o.finish(ctx, res, reason.Message); err != nil {
		return nil, err
	}
	l.Warn("File rejected", zap.String("kind", string(errs.KindOf(reason))), zap.Error(reason))
	return res, o.move(ctx, res, o.layout.Unprocessed)
}

// finish writes the ledger row for this attempt.
func (o *Orchestrator) finish(ctx context.Context, res *Result, message string) error {
	rec := &ledger.ProcessedFileRecord{
		FilePath:         res.Key,
		FileHash:         res.Hash,
		Company:          res.Company,
		Status:           ledger.Status(res.Outcome),
		RecordsProcessed: res.Published,
		RecordsFailed:    res.Failed,
		ErrorMessage:     message,
		BatchID:          res.BatchID,
		CorrelationID:    res.CorrelationID,
	}
	if err := o.ledger.Record(ctx, rec); err != nil {
		return err
	}
	res.Attempt = rec.Attempt
	o.metrics.FileProcessed(string(res.Outcome))
	return nil
}

func (o *Orchestrator) move(ctx context.Context, res *Result, prefix string) error {
	dst := storage.Relocate(res.Key, o.layout.Pending, prefix)
	if err := o.store.Move(ctx, res.Key, dst); err != nil {
		return fmt.Errorf("%s recorded as %s but not moved: %w", res.Key, res.Outcome, err)
	}
	res.MovedTo = dst
	return nil
}

func ownership(msg string) *errs.E {
	return errs.New(errs.KindOwnershipMismatch, errs.WithMessage(msg))
}

func structural(msg string) *errs.E {
	return errs.New(errs.KindStructuralInvalid, errs.WithMessage("invalid file structure: "+msg))
}

func summarize(messages []string) string {
	if len(messages) == 0 {
		return ""
	}
	shown := messages
	if len(shown) > maxErrorMessages {
		shown = shown[:maxErrorMessages]
	}
	summary := fmt.Sprintf("%d item(s) failed: %s", len(messages), strings.Join(shown, "; "))
	if len(messages) > maxErrorMessages {
		summary += fmt.Sprintf("; and %d more", len(messages)-maxErrorMessages)
	}
	return summary
}
