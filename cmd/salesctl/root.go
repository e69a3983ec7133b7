package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"salesdash/internal/cli"
	"salesdash/internal/config"
	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/source/csvfile"
)

var (
	// csvFlag overrides the configured backend with a CSV file.
	csvFlag    string
	outputFlag string
)

var rootCmd = &cobra.Command{
	Use:   "salesctl",
	Short: "salesctl - branch sales reports from the command line",
	Long: `salesctl prints the same aggregates the dashboard serves: totals,
monthly trends, year-over-year comparisons, growth tables and arbitrary
month windows. Data comes from the configured backend (DATA_BACKEND)
unless --csv points at a file.`,
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&csvFlag, "csv", "", "Read rows from this CSV file instead of the configured backend")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", string(FormatTable), "Output format (table, json, yaml)")
	cobra.OnInitialize(cli.LoadEnvFile)
}

// newLogger logs to stderr so stdout stays parseable.
func newLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.Component = applog.ComponentCLI
	cfg.Output = os.Stderr
	return applog.New(cfg)
}

// loadRows reads the dataset from --csv or the configured backend.
func loadRows(ctx context.Context) ([]core.SalesRow, error) {
	if csvFlag != "" {
		rows, err := csvfile.New(csvFlag).ReadRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", csvFlag, err)
		}
		return rows, nil
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	be, err := cli.OpenBackend(ctx, newLogger(), cfg)
	if err != nil {
		return nil, err
	}
	defer be.Close()
	return be.Backend.ReadRows(ctx)
}

// defaultYears returns BASE_YEAR and COMPARE_YEAR from the environment.
func defaultYears() (int, int) {
	cfg := config.Load()
	return cfg.BaseYear, cfg.CompareYear
}

// emit writes v in the selected format; t is used for table output.
func emit(cmd *cobra.Command, v any, t Table) error {
	out, err := FormatResponse(v, t, OutputFormat(outputFlag))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
