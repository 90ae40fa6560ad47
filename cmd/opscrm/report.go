package main

import (
	"fmt"
	"time"

	"kyri56xcaesar/opscrm/internal/mleave"
	"kyri56xcaesar/opscrm/internal/report"

	"github.com/spf13/cobra"
)

var (
	reportYear    int
	reportMonthly bool
	reportCSV     bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the yearly leave/WFH usage of every staff member",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx, loadConfig())
		if err != nil {
			return err
		}
		defer pool.Close()

		summaries, err := mleave.NewStore(pool).YearSummaries(ctx, reportYear)
		if err != nil {
			return fmt.Errorf("load summaries for %d: %w", reportYear, err)
		}

		report.Write(cmd.OutOrStdout(), reportYear, summaries, report.Options{Monthly: reportMonthly, CSV: reportCSV})
		return nil
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild the yearly leave/WFH records from approved requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx, loadConfig())
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := mleave.NewStore(pool).RecomputeYear(ctx, reportYear)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "leave records rebuilt for %d staff (%d)\n", n, reportYear)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(recomputeCmd)

	reportCmd.Flags().IntVarP(&reportYear, "year", "y", time.Now().Year(), "Year to report")
	reportCmd.Flags().BoolVar(&reportMonthly, "monthly", false, "Add one column per month")
	reportCmd.Flags().BoolVar(&reportCSV, "csv", false, "Render CSV instead of a table")
	recomputeCmd.Flags().IntVarP(&reportYear, "year", "y", time.Now().Year(), "Year to rebuild")
}
