package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"price-pipeline/core/broker"
	"price-pipeline/core/storage"
	"price-pipeline/feature/ingest"
	"price-pipeline/feature/ledger"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ledgerCompany   string
	ledgerSince     time.Duration
	retryOlderThan  time.Duration
	retryConfirmYes bool
)

// ledgerCmd is the parent command for ledger operations.
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the processed-file ledger",
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-status counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}

		f := ledger.Filter{Company: ledgerCompany}
		if ledgerSince > 0 {
			f.From = time.Now().Add(-ledgerSince)
		}
		stats, err := ledger.NewRepository(a.db).Stats(context.Background(), f)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var ledgerRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reprocess files whose latest attempt failed",
	Long: `Lists files whose latest attempt is FAILED and older than --older-than.
With --yes each file is moved back from the unprocessed prefix to pending and
processed again with force, which records a new attempt.`,
	RunE: runLedgerRetry,
}

func init() {
	ledgerStatsCmd.Flags().StringVar(&ledgerCompany, "company", "", "Only count this company")
	ledgerStatsCmd.Flags().DurationVar(&ledgerSince, "since", 0, "Only count rows newer than this (e.g. 24h)")
	ledgerRetryCmd.Flags().DurationVar(&retryOlderThan, "older-than", time.Hour, "Minimum age of the failed attempt")
	ledgerRetryCmd.Flags().BoolVar(&retryConfirmYes, "yes", false, "Retry instead of only listing the candidates")

	ledgerCmd.AddCommand(ledgerStatsCmd, ledgerRetryCmd)
	RootCmd.AddCommand(ledgerCmd)
}

func runLedgerRetry(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.logger.Sync()
	ctx := context.Background()

	candidates, err := ledger.NewRepository(a.db).RetryCandidates(ctx, time.Now().Add(-retryOlderThan))
	if err != nil {
		return err
	}
	a.logger.Info("Retry candidates", zap.Int("count", len(candidates)))
	for _, rec := range candidates {
		a.logger.Info("Candidate",
			zap.String("key", rec.FilePath),
			zap.Int("attempt", rec.Attempt),
			zap.Time("processed_at", rec.ProcessedAt),
			zap.String("error", rec.ErrorMessage),
		)
	}
	if len(candidates) == 0 || !retryConfirmYes {
		if len(candidates) > 0 {
			a.logger.Info("Dry run. Use --yes to retry.")
		}
		return nil
	}

	store, err := a.objectStore()
	if err != nil {
		return err
	}
	conn := broker.NewConnection(a.cfg.Broker, a.logger)
	defer conn.Close()
	orch, sender := a.orchestrator(store, conn)
	defer sender.Close()

	var failed int
	for _, rec := range candidates {
		l := a.logger.With(zap.String("key", rec.FilePath))
		src := storage.Relocate(rec.FilePath, a.cfg.Storage.PendingPrefix, a.cfg.Storage.UnprocessedPrefix)
		present, err := store.Exists(ctx, src)
		if err != nil {
			l.Error("Failed to check unprocessed file", zap.String("from", src), zap.Error(err))
			failed++
			continue
		}
		if !present {
			l.Warn("Unprocessed file is gone, skipping", zap.String("from", src))
			continue
		}
		if err := store.Move(ctx, src, rec.FilePath); err != nil {
			l.Error("Failed to move file back to pending", zap.String("from", src), zap.Error(err))
			failed++
			continue
		}

		res, err := orch.Process(ctx, ingest.FileRequest{Key: rec.FilePath, CorrelationID: uuid.NewString(), Force: true})
		if err != nil {
			l.Error("Retry failed", zap.Error(err))
			failed++
			continue
		}
		l.Info("Retried", zap.String("outcome", string(res.Outcome)), zap.Int("attempt", res.Attempt))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d retries failed", failed, len(candidates))
	}
	return nil
}
