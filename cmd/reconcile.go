package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"price-pipeline/core/reconcile"
	"price-pipeline/core/storage"
	"price-pipeline/feature/pricefile"
	"price-pipeline/feature/snapshot"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var yesConfirm bool

// reconcileCmd is the parent command for snapshot reconciliation.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile price files against the stored snapshot",
}

// reconcilePlanCmd diffs a stored price file against the snapshot.
var reconcilePlanCmd = &cobra.Command{
	Use:   "plan <key>",
	Short: "Show the delta a price file would produce",
	Long: `Reads a price file from the bucket, diffs its valid items against the stored
snapshot of its company and prints the planned adds, updates and deletes.

Examples:
  # Report only
  reconcile plan processed/acme/prices.json

  # Apply with auto-confirm (non-interactive)
  reconcile plan processed/acme/prices.json --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcilePlan,
}

func init() {
	reconcilePlanCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Apply the plan without prompting")
	reconcileCmd.AddCommand(reconcilePlanCmd)
	RootCmd.AddCommand(reconcileCmd)
}

func runReconcilePlan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	key := args[0]

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.logger.Sync()
	l := a.logger.With(zap.String("key", key))

	store, err := a.objectStore()
	if err != nil {
		return err
	}
	meta, items, err := readPriceFile(ctx, store, key)
	if err != nil {
		return err
	}

	rec, err := a.reconciler(ctx)
	if err != nil {
		return err
	}

	l.Info("Planning reconciliation...", zap.String("company", meta.Company), zap.Int("items", len(items)))
	plan, err := rec.Plan(ctx, meta.Company, items)
	if err != nil {
		return fmt.Errorf("failed to plan reconciliation: %w", err)
	}
	printReconcileReport(l, plan)

	if plan.IsEmpty() {
		l.Info("Snapshot already matches the file.")
		return nil
	}
	if !confirmDestructiveAction() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	l.Info("Applying plan...")
	delta, err := rec.ReconcileItems(ctx, "manual-"+uuid.NewString(), meta.Company, meta.FileProcessedAt.Time, items)
	if err != nil {
		return fmt.Errorf("failed to apply plan: %w", err)
	}
	l.Info("Snapshot reconciled",
		zap.Int("added", len(delta.Added)),
		zap.Int("updated", len(delta.Updated)),
		zap.Int("deleted", len(delta.DeletedIDs)),
	)
	return nil
}

// readPriceFile loads the metadata and the valid items of key.
func readPriceFile(ctx context.Context, store *storage.ObjectStore, key string) (*pricefile.Metadata, []pricefile.PriceItem, error) {
	r, err := store.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	meta, err := pricefile.ExtractMetadata(r)
	r.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read metadata of %s: %w", key, err)
	}

	r, err = store.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var items []pricefile.PriceItem
	_, err = pricefile.ParseStream(r,
		func(item pricefile.PriceItem) { items = append(items, item) },
		func(string) {},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return meta, items, nil
}

// printReconcileReport prints a formatted reconciliation report using logger.
func printReconcileReport(l *zap.Logger, plan *reconcile.Plan[snapshot.CurrentStateRow]) {
	s := plan.Summary

	l.Info("Reconciliation report",
		zap.Int("total_products", s.TotalKeys),
		zap.Int("adds", s.Adds),
		zap.Int("updates", s.Updates),
		zap.Int("deletes", s.Deletes),
		zap.Int("unchanged", s.Unchanged),
	)

	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.String("key", action.Key),
			zap.String("reason", action.Reason),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to apply the plan: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
