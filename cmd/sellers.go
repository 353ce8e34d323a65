package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"price-pipeline/feature/sellers"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sellersCmd is the parent command for the seller directory.
var sellersCmd = &cobra.Command{
	Use:   "sellers",
	Short: "Manage the seller directory",
}

var sellersImportCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Insert or update sellers from a YAML file",
	Long: `Reads a file of the form

  sellers:
    - folder: acme
      company: ACME Corp
      active: true

and upserts every entry by folder. Without an argument sellers.import_file is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}

		path := a.cfg.Sellers.ImportFile
		if len(args) == 1 {
			path = args[0]
		}
		list, err := sellers.LoadFile(path)
		if err != nil {
			return err
		}

		n, err := a.directory().Upsert(context.Background(), list)
		if err != nil {
			return err
		}
		a.logger.Info("Sellers imported", zap.String("file", path), zap.Int("count", n))
		return nil
	},
}

var sellersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sellers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}

		list, err := a.directory().List(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FOLDER\tCOMPANY\tACTIVE")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%s\t%t\n", s.FolderName, s.CompanyName, s.Active)
		}
		return w.Flush()
	},
}

func init() {
	sellersCmd.AddCommand(sellersImportCmd, sellersListCmd)
	RootCmd.AddCommand(sellersCmd)
}
