package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"price-pipeline/core/errs"
	"price-pipeline/core/logger"
	"price-pipeline/core/metrics"
	"price-pipeline/core/reconcile"
	"price-pipeline/core/utils"
	"price-pipeline/feature/aggregator"
	"price-pipeline/feature/pricefile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// insertBatchSize bounds rows per INSERT statement.
const insertBatchSize = 500

// Reconciler applies completed batches to the stored snapshot and the index.
type Reconciler struct {
	db      *gorm.DB
	index   IndexApplier
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewReconciler creates a reconciler. A nil index uses NopApplier.
func NewReconciler(db *gorm.DB, index IndexApplier, l *zap.Logger, m *metrics.Metrics) *Reconciler {
	if index == nil {
		index = NopApplier{}
	}
	return &Reconciler{
		db:      db,
		index:   index,
		logger:  logger.Component(l, "reconciler"),
		metrics: m,
		now:     time.Now,
	}
}

// Complete implements aggregator.CompleteFunc.
func (r *Reconciler) Complete(ctx context.Context, b aggregator.Batch) error {
	_, err := r.Reconcile(ctx, b)
	return err
}

// Reconcile diffs the batch against the company's stored snapshot, replaces the
// snapshot and applies the delta to the index in one transaction. The history row
// ends SUCCESS with the delta counts, or FAILED with the cause.
func (r *Reconciler) Reconcile(ctx context.Context, b aggregator.Batch) (*Delta, error) {
	return r.run(ctx, runInput{
		batchID:         b.ID,
		company:         b.Company,
		fileProcessedAt: b.FileProcessedAt.Time,
		receivedAt:      b.ReceivedAt,
		total:           b.Total,
		items:           b.Items(),
	})
}

// ReconcileItems reconciles items that did not come through the broker, e.g. from
// the command line. batchID identifies the history row.
func (r *Reconciler) ReconcileItems(ctx context.Context, batchID, company string, fileProcessedAt time.Time, items []pricefile.PriceItem) (*Delta, error) {
	return r.run(ctx, runInput{
		batchID:         batchID,
		company:         company,
		fileProcessedAt: fileProcessedAt,
		receivedAt:      r.now(),
		total:           len(items),
		items:           items,
	})
}

// Plan computes the delta for items without changing anything.
func (r *Reconciler) Plan(ctx context.Context, company string, items []pricefile.PriceItem) (*reconcile.Plan[CurrentStateRow], error) {
	company = utils.NormalizeCompany(company)
	incoming := rowsFrom(company, "", time.Time{}, items)
	return reconcile.DiffSources[CurrentStateRow](ctx, priceAdapter{},
		func(ctx context.Context) ([]CurrentStateRow, error) { return r.Current(ctx, company) },
		func(context.Context) ([]CurrentStateRow, error) { return incoming, nil },
	)
}

// Current returns the stored snapshot of a company ordered by product id.
func (r *Reconciler) Current(ctx context.Context, company string) ([]CurrentStateRow, error) {
	return loadSnapshot(r.db.WithContext(ctx), utils.NormalizeCompany(company))
}

// Expire implements aggregator.ExpireFunc by recording a FAILED history row.
func (r *Reconciler) Expire(ctx context.Context, b aggregator.Batch) error {
	h := ProcessingHistory{
		BatchID:         b.ID,
		Company:         utils.NormalizeCompany(b.Company),
		FileProcessedAt: b.FileProcessedAt.UTC(),
		ReceivedAt:      b.ReceivedAt.UTC(),
		TotalItems:      b.Total,
		ProcessedItems:  b.Received(),
		Status:          HistoryFailed,
		ErrorMessage:    fmt.Sprintf("incomplete batch: received %d of %d", b.Received(), b.Total),
	}
	err := r.db.WithContext(ctx).
		Where(ProcessingHistory{BatchID: b.ID}).
		Assign(ProcessingHistory{Status: h.Status, ErrorMessage: h.ErrorMessage, ProcessedItems: h.ProcessedItems}).
		FirstOrCreate(&h).Error
	if err != nil {
		return fmt.Errorf("failed to record expired batch %s: %w", b.ID, err)
	}
	return nil
}

type runInput struct {
	batchID         string
	company         string
	fileProcessedAt time.Time
	receivedAt      time.Time
	total           int
	items           []pricefile.PriceItem
}

func (r *Reconciler) run(ctx context.Context, in runInput) (*Delta, error) {
	company := utils.NormalizeCompany(in.company)
	l := r.logger.With(zap.String("batch_id", in.batchID), zap.String("company", company))
	started := r.now()

	history := ProcessingHistory{
		BatchID:         in.batchID,
		Company:         company,
		FileProcessedAt: in.fileProcessedAt.UTC(),
		ReceivedAt:      in.receivedAt.UTC(),
		TotalItems:      in.total,
		ProcessedItems:  len(in.items),
		Status:          HistoryProcessing,
	}
	if err := r.db.WithContext(ctx).Create(&history).Error; err != nil {
		return nil, errs.New(errs.KindReconciliation,
			errs.WithMessage("failed to open history for batch "+in.batchID),
			errs.WithCause(err))
	}

	incoming := rowsFrom(company, in.batchID, in.fileProcessedAt, in.items)
	var delta Delta
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := loadSnapshot(tx, company)
		if err != nil {
			return err
		}
		plan := reconcile.Diff[CurrentStateRow](priceAdapter{}, stored, incoming)
		delta = deltaFrom(plan)

		_, err = reconcile.ApplyPlan[CurrentStateRow](ctx, &replacement{
			tx:       tx,
			company:  company,
			incoming: incoming,
			index:    r.index,
		}, plan, reconcile.Options{Confirmed: true})
		return err
	})

	if err != nil {
		r.finish(ctx, l, &history, HistoryFailed, Delta{}, err.Error())
		r.metrics.BatchFinished("reconcile_failed")
		l.Error("Reconciliation failed, snapshot unchanged", zap.Error(err))
		return nil, errs.New(errs.KindReconciliation,
			errs.WithMessage("batch "+in.batchID),
			errs.WithCause(err))
	}

	r.finish(ctx, l, &history, HistorySuccess, delta, "")
	took := r.now().Sub(started)
	r.metrics.DeltaApplied(len(delta.Added), len(delta.Updated), len(delta.DeletedIDs), took)
	l.Info("Snapshot reconciled",
		zap.Int("added", len(delta.Added)),
		zap.Int("updated", len(delta.Updated)),
		zap.Int("deleted", len(delta.DeletedIDs)),
		zap.Duration("took", took),
	)
	return &delta, nil
}

// finish moves the history row out of PROCESSING. Failures are logged; the run's
// own outcome is what the caller sees.
func (r *Reconciler) finish(ctx context.Context, l *zap.Logger, h *ProcessingHistory, status HistoryStatus, d Delta, message string) {
	updates := map[string]any{
		"status":        status,
		"error_message": message,
		"added":         len(d.Added),
		"updated":       len(d.Updated),
		"deleted":       len(d.DeletedIDs),
	}
	if status == HistorySuccess {
		updates["indexed_at"] = r.now().UTC()
	}
	err := r.db.WithContext(context.WithoutCancel(ctx)).Model(h).Updates(updates).Error
	if err != nil {
		l.Error("Failed to update processing history", zap.String("status", string(status)), zap.Error(err))
	}
}

// replacement swaps a company's snapshot for the incoming rows and pushes the plan
// to the index. It runs inside the reconciliation transaction.
type replacement struct {
	tx       *gorm.DB
	company  string
	incoming []CurrentStateRow
	index    IndexApplier
}

func (m *replacement) Apply(ctx context.Context, plan *reconcile.Plan[CurrentStateRow]) error {
	if err := m.tx.Where("company = ?", m.company).Delete(&CurrentStateRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	if len(m.incoming) > 0 {
		if err := m.tx.CreateInBatches(m.incoming, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}
	}
	if err := m.index.Apply(ctx, m.company, deltaFrom(plan)); err != nil {
		return fmt.Errorf("failed to apply delta to index: %w", err)
	}
	return nil
}

func loadSnapshot(db *gorm.DB, company string) ([]CurrentStateRow, error) {
	var rows []CurrentStateRow
	if err := db.Where("company = ?", company).Order("product_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", company, err)
	}
	return rows, nil
}

// History returns the latest history rows, optionally for one company.
func (r *Reconciler) History(ctx context.Context, company string, limit int) ([]ProcessingHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Order("received_at DESC").Order("id DESC").Limit(limit)
	if company != "" {
		q = q.Where("company = ?", utils.NormalizeCompany(company))
	}
	var rows []ProcessingHistory
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return rows, nil
}

// ErrHistoryNotFound is returned when a batch has no history row.
var ErrHistoryNotFound = errors.New("history not found")

// HistoryFor returns the history row of one batch.
func (r *Reconciler) HistoryFor(ctx context.Context, batchID string) (*ProcessingHistory, error) {
	var h ProcessingHistory
	err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", batchID, err)
	}
	return &h, nil
}
