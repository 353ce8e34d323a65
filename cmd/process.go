package cmd

import (
	"context"
	"os"

	"price-pipeline/core/broker"
	"price-pipeline/feature/ingest"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var processForce bool

// processCmd runs one pending file through the ingest pipeline.
var processCmd = &cobra.Command{
	Use:   "process <key>",
	Short: "Process one pending price file",
	Long: `Processes a single object under the pending prefix as if its storage
notification had arrived, then prints the result as JSON.

Use --force to publish content the ledger has already seen.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		store, err := a.objectStore()
		if err != nil {
			return err
		}
		conn := broker.NewConnection(a.cfg.Broker, a.logger)
		defer conn.Close()

		ctx := context.Background()
		orch, sender := a.orchestrator(store, conn)
		defer sender.Close()

		res, err := orch.Process(ctx, ingest.FileRequest{
			Key:           args[0],
			CorrelationID: uuid.NewString(),
			Force:         processForce,
		})
		if res != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(res)
		}
		if err != nil {
			return err
		}
		a.logger.Info("File processed", zap.String("outcome", string(res.Outcome)))
		return nil
	},
}

func init() {
	processCmd.Flags().BoolVar(&processForce, "force", false, "Process even if the content was already processed")
	RootCmd.AddCommand(processCmd)
}
