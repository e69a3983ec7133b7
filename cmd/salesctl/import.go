package main

import (
	"errors"

	"github.com/spf13/cobra"

	"salesdash/internal/cli"
	"salesdash/internal/services"
)

var importCmd = &cobra.Command{
	Use:   "import PATH",
	Short: "Replace the stored dataset with a CSV file",
	Long: `Load the CSV at PATH (optionally gzip-compressed) and replace every row in
the configured backend. Only the sqlite and memory backends accept imports.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if csvFlag != "" {
		return errors.New("--csv cannot be combined with import")
	}
	ctx := cmd.Context()
	logger := newLogger()

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	be, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	imports := services.NewImportService(be.Writer, services.ImportOptions{Logger: logger})
	res, err := imports.RequestImport(ctx, args[0])
	if err != nil {
		return err
	}

	t := Table{
		Header: []string{"JOB", "PATH", "ROWS"},
		Rows:   [][]string{{res.JobID, res.Path, itoa(res.Rows)}},
	}
	return emit(cmd, res, t)
}
