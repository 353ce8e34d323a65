package cmd

import (
	"context"
	"fmt"

	"price-pipeline/core/broker"
	"price-pipeline/core/config"
	"price-pipeline/core/database"
	"price-pipeline/core/logger"
	"price-pipeline/core/metrics"
	"price-pipeline/core/search"
	"price-pipeline/core/storage"
	"price-pipeline/feature/events"
	"price-pipeline/feature/ingest"
	"price-pipeline/feature/ledger"
	"price-pipeline/feature/publisher"
	"price-pipeline/feature/sellers"
	"price-pipeline/feature/snapshot"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// models lists every table the pipeline owns.
var models = []any{
	&ledger.ProcessedFileRecord{},
	&sellers.Seller{},
	&snapshot.CurrentStateRow{},
	&snapshot.ProcessingHistory{},
	&events.FailedEvent{},
}

// app holds the shared dependencies of every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	metrics *metrics.Metrics
}

// bootstrap loads the configuration, creates the logger, opens the database and
// migrates the tables.
func bootstrap() (*app, error) {
	return load(true)
}

func load(migrate bool) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(l)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if migrate {
		if err := database.Migrate(db, models...); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, logger: l, db: db}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cfg.Metrics)
	}
	return a, nil
}

func (a *app) objectStore() (*storage.ObjectStore, error) {
	client, err := storage.NewClient(a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return storage.NewObjectStore(client, a.cfg.Storage.Bucket), nil
}

func (a *app) directory() *sellers.Directory {
	return sellers.NewDirectory(a.db, a.cfg.Sellers.CacheTTL)
}

// orchestrator wires the ingest side. The returned publisher must be closed by the caller.
func (a *app) orchestrator(store *storage.ObjectStore, conn *broker.Connection) (*ingest.Orchestrator, *broker.Publisher) {
	sender := broker.NewPublisher(conn)
	pub := publisher.New(sender, a.cfg.Broker.Exchange, a.cfg.Publisher, a.logger, a.metrics)
	orch := ingest.NewOrchestrator(
		store,
		ingest.LayoutFrom(a.cfg.Storage),
		ledger.NewRepository(a.db),
		a.directory(),
		pub,
		a.logger,
		a.metrics,
	)
	return orch, sender
}

// reconciler wires snapshot reconciliation, with the search index when enabled.
func (a *app) reconciler(ctx context.Context) (*snapshot.Reconciler, error) {
	var applier snapshot.IndexApplier = snapshot.NopApplier{}
	if a.cfg.Search.Enabled {
		client, err := search.NewClient(a.cfg.Search)
		if err != nil {
			return nil, err
		}
		indexer := search.NewIndexer(client, a.cfg.Search)
		if err := indexer.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		applier = snapshot.NewSearchApplier(indexer)
	} else {
		a.logger.Warn("Search disabled, deltas are stored but not indexed")
	}
	return snapshot.NewReconciler(a.db, applier, a.logger, a.metrics), nil
}
