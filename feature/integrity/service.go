package integrity

import (
	"context"
	"time"

	"price-pipeline/core/storage"
	"price-pipeline/feature/integrity/checks"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	client   storage.Client
	bucket   string
	prefixes []string
	pending  string
	cfg      Config
	db       *gorm.DB
	models   []any
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new integrity service. models are the tables the schema
// check verifies; a nil db skips it.
func NewService(client storage.Client, storageCfg storage.Config, cfg Config, db *gorm.DB, models []any, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		bucket: storageCfg.Bucket,
		prefixes: []string{
			storageCfg.PendingPrefix,
			storageCfg.ProcessedPrefix,
			storageCfg.UnprocessedPrefix,
		},
		pending: storageCfg.PendingPrefix,
		cfg:     cfg,
		db:      db,
		models:  models,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckLayout returns the bucket prefixes that are missing.
func (s *Service) CheckLayout(ctx context.Context) ([]string, error) {
	return checks.CheckLayout(ctx, s.client, s.bucket, s.prefixes)
}

// FixLayout creates the missing prefixes.
func (s *Service) FixLayout(ctx context.Context, missing []string) error {
	return checks.FixLayout(ctx, s.client, s.bucket, s.logger, missing)
}

// CheckBacklog reports files stuck under the pending prefix. A zero olderThan uses
// the configured backlog age.
func (s *Service) CheckBacklog(ctx context.Context, olderThan time.Duration) (*checks.BacklogReport, error) {
	if olderThan <= 0 {
		olderThan = s.cfg.BacklogAge
	}
	return checks.CheckBacklog(ctx, s.client, s.bucket, s.pending, olderThan, s.now())
}

// CheckSchema compares the database with the models.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, s.models...)
}

// Section is the outcome of one check inside a Report.
type Section struct {
	Status string `json:"status"` // "ok", "error"
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// Report is the combined result of every check.
type Report struct {
	Layout  Section `json:"layout"`
	Backlog Section `json:"backlog"`
	Schema  Section `json:"schema,omitempty"`
}

// Healthy reports whether every check ran and found nothing wrong.
func (r *Report) Healthy() bool {
	if r.Layout.Status != "ok" || r.Backlog.Status != "ok" {
		return false
	}
	if missing, ok := r.Layout.Result.([]string); ok && len(missing) > 0 {
		return false
	}
	if backlog, ok := r.Backlog.Result.(*checks.BacklogReport); ok && len(backlog.Stale) > 0 {
		return false
	}
	if r.Schema.Status == "" {
		return true
	}
	schema, ok := r.Schema.Result.(*checks.SchemaReport)
	return r.Schema.Status == "ok" && ok && schema.Matched
}

// Run executes every check concurrently. Failures are reported per section.
func (s *Service) Run(ctx context.Context) *Report {
	report := &Report{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		missing, err := s.CheckLayout(ctx)
		report.Layout = section(missing, err)
		return nil
	})
	g.Go(func() error {
		backlog, err := s.CheckBacklog(ctx, 0)
		report.Backlog = section(backlog, err)
		return nil
	})
	if s.db != nil {
		g.Go(func() error {
			schema, err := s.CheckSchema()
			report.Schema = section(schema, err)
			return nil
		})
	}

	_ = g.Wait()
	return report
}

func section(result any, err error) Section {
	if err != nil {
		return Section{Status: "error", Error: err.Error()}
	}
	return Section{Status: "ok", Result: result}
}
