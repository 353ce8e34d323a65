package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"price-pipeline/core/broker"
	"price-pipeline/core/loader"
	"price-pipeline/core/logger"
	"price-pipeline/core/middleware/auth"
	"price-pipeline/core/middleware/rayid"
	"price-pipeline/core/server"
	"price-pipeline/feature/aggregator"
	"price-pipeline/feature/events"
	"price-pipeline/feature/ingest"
	"price-pipeline/feature/integrity"
	"price-pipeline/feature/ledger"
	"price-pipeline/feature/sellers"
	"price-pipeline/feature/snapshot"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	startIngest    bool
	startAggregate bool
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pipeline",
	Long: `Starts the admin HTTP server and the pipeline workers.

The ingest side receives storage events and publishes price items; the aggregate
side consumes them, rebuilds batches and reconciles snapshots. server.role selects
the sides, --ingest and --aggregate override it.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startIngest, "ingest", false, "Run the ingest side")
	startCmd.Flags().BoolVar(&startAggregate, "aggregate", false, "Run the aggregate side")
	RootCmd.AddCommand(startCmd)
}

func resolveRole(configured string) string {
	switch {
	case startIngest && startAggregate:
		return server.RoleAll
	case startIngest:
		return server.RoleIngest
	case startAggregate:
		return server.RoleAggregate
	}
	return configured
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.logger.Sync()
	cfg := a.cfg

	cfg.Server.Role = resolveRole(cfg.Server.Role)
	if !cfg.Server.IsValidRole() {
		return fmt.Errorf("invalid server role %q", cfg.Server.Role)
	}
	logg := a.logger.With(zap.String("role", cfg.Server.Role))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := broker.NewConnection(cfg.Broker, logg)
	defer conn.Close()
	if err := conn.Setup(ctx); err != nil {
		return fmt.Errorf("failed to declare broker topology: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	mgr := loader.NewManager()
	directory := a.directory()
	mgr.Register(ledger.NewFeature(ledger.NewRepository(a.db), logg))
	mgr.Register(sellers.NewFeature(directory, logg))

	if cfg.Server.RunsIngest() {
		store, err := a.objectStore()
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}

		orch, sender := a.orchestrator(store, conn)
		defer sender.Close()

		queue := events.NewQueue(cfg.Dedup.TTL)
		defer queue.Close()
		receiver := events.NewReceiver(queue, logg, a.metrics)
		audit := events.NewGormAuditStore(a.db)
		dispatcher := events.NewDispatcher(cfg.Storage.Bucket, orch.ProcessEvent, audit, logg)
		consumer := events.NewConsumer(queue, dispatcher, logg, a.metrics)

		g.Go(func() error { return consumer.Run(gctx) })
		g.Go(func() error {
			queue.RunPruner(gctx, cfg.Dedup.PruneInterval)
			return nil
		})
		if cfg.Dedup.Amqp {
			notifications := broker.NewConsumer(conn, cfg.Broker.StorageQueue, "storage-events", 1, logg)
			g.Go(func() error { return notifications.Run(gctx, receiver.HandleDelivery) })
		}
		if cfg.Storage.Listen {
			g.Go(func() error {
				receiver.Listen(gctx, store.Client(), store.Bucket(), cfg.Storage.PendingPrefix, cfg.Broker.ReconnectDelay)
				return nil
			})
		}

		mgr.Register(events.NewFeature(events.NewHTTPHandler(receiver, queue, audit, logg), cfg.Dedup.Webhook))
		mgr.Register(ingest.NewFeature(orch))
		mgr.Register(integrity.NewFeature(integrity.NewService(store.Client(), cfg.Storage, cfg.Integrity, a.db, models, logg)))
	}

	if cfg.Server.RunsAggregate() {
		rec, err := a.reconciler(ctx)
		if err != nil {
			return err
		}
		agg := aggregator.New(cfg.Aggregator, aggregator.NewMemoryStore(), rec.Complete, rec.Expire, logg, a.metrics)
		items := broker.NewConsumer(conn, cfg.Broker.Queue, "aggregator", cfg.Aggregator.Workers, logg)

		g.Go(func() error { return items.Run(gctx, agg.HandleDelivery) })
		g.Go(func() error {
			agg.RunSweeper(gctx)
			return nil
		})

		mgr.Register(aggregator.NewFeature(agg, true))
		mgr.Register(snapshot.NewFeature(rec))
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so every later log line carries it
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Debug("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})
	app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: []string{cfg.Metrics.Path}}))
	if a.metrics != nil {
		app.Get(cfg.Metrics.Path, a.metrics.Handler())
	}

	if err := mgr.LoadAll(app); err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}

	g.Go(func() error {
		logg.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info("Shutting down server...")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
