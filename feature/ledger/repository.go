package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("ledger record not found")

// Repository reads and appends ledger rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record appends rec, assigning the next attempt number for its (path, hash).
func (r *Repository) Record(ctx context.Context, rec *ProcessedFileRecord) error {
	if rec.FilePath == "" || rec.FileHash == "" {
		return fmt.Errorf("ledger record needs a path and a hash")
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}
	rec.ProcessedAt = rec.ProcessedAt.UTC()
	rec.Company = strings.ToLower(rec.Company)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextAttempt(tx, rec.FilePath, rec.FileHash)
		if err != nil {
			return err
		}
		rec.ID = 0
		rec.Attempt = next
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to record %s: %w", rec.FilePath, err)
		}
		return nil
	})
}

// NextAttempt returns the attempt number the next row for (path, hash) will get.
func (r *Repository) NextAttempt(ctx context.Context, path, hash string) (int, error) {
	return nextAttempt(r.db.WithContext(ctx), path, hash)
}

func nextAttempt(db *gorm.DB, path, hash string) (int, error) {
	var max sql.NullInt64
	err := db.Model(&ProcessedFileRecord{}).
		Where("file_path = ? AND file_hash = ?", path, hash).
		Select("MAX(attempt)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read attempts for %s: %w", path, err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

// Exists reports whether (path, hash) was already processed to a terminal outcome.
func (r *Repository) Exists(ctx context.Context, path, hash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ProcessedFileRecord{}).
		Where("file_path = ? AND file_hash = ? AND status <> ?", path, hash, StatusDuplicate).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ledger for %s: %w", path, err)
	}
	return count > 0, nil
}

// FindByPathAndHash returns the authoritative row for (path, hash).
func (r *Repository) FindByPathAndHash(ctx context.Context, path, hash string) (*ProcessedFileRecord, error) {
	return r.first(r.db.WithContext(ctx).
		Where("file_path = ? AND file_hash = ? AND status <> ?", path, hash, StatusDuplicate).
		Order("attempt"))
}

// FindByBatchID returns the row that published batchID.
func (r *Repository) FindByBatchID(ctx context.Context, batchID string) (*ProcessedFileRecord, error) {
	return r.first(r.db.WithContext(ctx).Where("batch_id = ?", batchID))
}

// FindByCorrelationID returns every attempt triggered under correlationID.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) ([]ProcessedFileRecord, error) {
	var rows []ProcessedFileRecord
	err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("processed_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find correlation %s: %w", correlationID, err)
	}
	return rows, nil
}

// FindBetween returns rows processed in [from, to).
func (r *Repository) FindBetween(ctx context.Context, from, to time.Time) ([]ProcessedFileRecord, error) {
	return r.Find(ctx, Filter{From: from, To: to})
}

// FindByCompanyBetween returns the rows of one company processed in [from, to).
func (r *Repository) FindByCompanyBetween(ctx context.Context, company string, from, to time.Time) ([]ProcessedFileRecord, error) {
	return r.Find(ctx, Filter{Company: company, From: from, To: to})
}

// Find returns rows matching f, newest first.
func (r *Repository) Find(ctx context.Context, f Filter) ([]ProcessedFileRecord, error) {
	var rows []ProcessedFileRecord
	q := applyFilter(r.db.WithContext(ctx).Model(&ProcessedFileRecord{}), f).
		Order("processed_at DESC").Order("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	return rows, nil
}

// RetryCandidates returns FAILED rows processed before olderThan whose (path, hash)
// has not been retried successfully since.
func (r *Repository) RetryCandidates(ctx context.Context, olderThan time.Time) ([]ProcessedFileRecord, error) {
	db := r.db.WithContext(ctx)
	latest := db.Model(&ProcessedFileRecord{}).
		Select("file_path, file_hash, MAX(attempt) AS attempt").
		Where("status <> ?", StatusDuplicate).
		Group("file_path, file_hash")

	var rows []ProcessedFileRecord
	err := db.Table("processed_files AS p").
		Select("p.*").
		Joins("JOIN (?) AS l ON p.file_path = l.file_path AND p.file_hash = l.file_hash AND p.attempt = l.attempt", latest).
		Where("p.status = ? AND p.processed_at < ?", StatusFailed, olderThan.UTC()).
		Order("p.processed_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find retry candidates: %w", err)
	}
	return rows, nil
}

type statusRow struct {
	Status    Status
	Files     int64
	Processed int64
	Failed    int64
}

// Stats aggregates rows per status for the filter.
func (r *Repository) Stats(ctx context.Context, f Filter) (*Stats, error) {
	var rows []statusRow
	err := applyFilter(r.db.WithContext(ctx).Model(&ProcessedFileRecord{}), f).
		Select("status, COUNT(*) AS files, COALESCE(SUM(records_processed), 0) AS processed, COALESCE(SUM(records_failed), 0) AS failed").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger: %w", err)
	}

	stats := &Stats{Company: strings.ToLower(f.Company), ByStatus: make(map[Status]int64, len(Statuses))}
	if !f.From.IsZero() {
		stats.From = &f.From
	}
	if !f.To.IsZero() {
		stats.To = &f.To
	}
	for _, s := range Statuses {
		stats.ByStatus[s] = 0
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Files
		stats.Files += row.Files
		stats.RecordsProcessed += row.Processed
		stats.RecordsFailed += row.Failed
	}
	return stats, nil
}

func (r *Repository) first(q *gorm.DB) (*ProcessedFileRecord, error) {
	var rec ProcessedFileRecord
	err := q.First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	return &rec, nil
}

func applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if f.Company != "" {
		q = q.Where("company = ?", strings.ToLower(f.Company))
	}
	if !f.From.IsZero() {
		q = q.Where("processed_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("processed_at < ?", f.To.UTC())
	}
	return q
}
