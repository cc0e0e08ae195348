package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sprint-metrics/config"
	"sprint-metrics/jobs"
	"sprint-metrics/logger"
	"sprint-metrics/report"
	"sprint-metrics/service"
	"sprint-metrics/store"
)

var (
	reportJSON    string
	reportCSV     string
	readinessFile string
	burndownCSV   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the overall analytics summary and export it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintf(cmd.ErrOrStderr(), "📊 Calculating metrics for the last %d days...\n", a.cfg.DaysToAnalyze)
		overall, err := a.svc.Overall(cmd.Context())
		if err != nil {
			return err
		}
		report.PrintSummary(cmd.OutOrStdout(), overall)

		if reportJSON != "" {
			if err := report.ExportToJSON(overall, reportJSON); err != nil {
				return fmt.Errorf("exporting json: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Metrics exported to: %s\n", reportJSON)
		}
		if reportCSV != "" {
			if err := report.ExportToCSV(overall, reportCSV); err != nil {
				return fmt.Errorf("exporting csv: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Metrics exported to: %s\n", reportCSV)
		}
		return nil
	},
}

var readinessCmd = &cobra.Command{
	Use:   "readiness [sprint]",
	Short: "Score a sprint's readiness",
	Long: `Score a sprint's readiness from the configured source, or score the
stories in a JSON file with --file. The sprint name labels the file result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sprint string
		if len(args) == 1 {
			sprint = args[0]
		}

		if readinessFile != "" {
			raw, err := os.ReadFile(readinessFile)
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			policy, err := service.LoadPolicy(cfg)
			if err != nil {
				return err
			}
			// scoring a file never touches the story source
			svc := service.New(nil, logger.NewWithWriter(cfg, os.Stderr), service.WithPolicy(policy))
			res, err := svc.ScoreSnapshot(raw, sprint)
			if err != nil {
				return err
			}
			report.PrintReadiness(cmd.OutOrStdout(), res)
			return nil
		}

		if sprint == "" {
			return fmt.Errorf("a sprint name is required unless --file is given")
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.svc.Readiness(cmd.Context(), sprint)
		if err != nil {
			return err
		}
		report.PrintReadiness(cmd.OutOrStdout(), res)
		return nil
	},
}

var burndownCmd = &cobra.Command{
	Use:   "burndown <sprint>",
	Short: "Print a sprint's burndown series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		points, err := a.svc.Burndown(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		report.PrintBurndown(cmd.OutOrStdout(), args[0], points)

		if burndownCSV != "" {
			if err := report.ExportBurndownCSV(points, burndownCSV); err != nil {
				return fmt.Errorf("exporting burndown: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Burndown exported to: %s\n", burndownCSV)
		}
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch from the source once and update the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := jobs.NewRefresher("", a.cfg.Location(), a.backend, a.svc, a.log)
		if err != nil {
			return err
		}
		if err := r.RunOnce(cmd.Context()); err != nil {
			if errors.Is(err, store.ErrNothingToRefresh) {
				return fmt.Errorf("cache not refreshed: %w", err)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Cache refreshed")
		return nil
	},
}

var sampleConfigCmd = &cobra.Command{
	Use:   "sample-config [file]",
	Short: "Write a sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := "config.sample.json"
		if len(args) == 1 {
			filename = args[0]
		}
		if err := config.CreateSampleConfig(filename); err != nil {
			return fmt.Errorf("creating sample config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Sample configuration file created: %s\n", filename)
		fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file with your credentials and rename to config.json")
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportJSON, "json", "", "Write the analytics to this JSON file")
	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "Write the analytics to this CSV file")
	readinessCmd.Flags().StringVarP(&readinessFile, "file", "f", "", "Score the stories in this JSON file instead of the configured source")
	burndownCmd.Flags().StringVar(&burndownCSV, "csv", "", "Write the burndown series to this CSV file")
}
