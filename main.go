package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sprint-metrics/config"
	"sprint-metrics/logger"
	"sprint-metrics/service"
)

// Global flags
var (
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "sprint-metrics",
	Short: "Sprint readiness and delivery analytics",
	Long: `sprint-metrics computes sprint readiness, burndown and backlog analytics
from a story API, Jira or a Postgres backlog.

Examples:
  sprint-metrics report --json metrics.json --csv metrics.csv
  sprint-metrics readiness "Sprint 7"
  sprint-metrics readiness --file stories.json
  sprint-metrics burndown "Sprint 7" --csv burndown.csv
  sprint-metrics refresh
  sprint-metrics sample-config`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json", "Path to the JSON or YAML config file")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(readinessCmd)
	rootCmd.AddCommand(burndownCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(sampleConfigCmd)
}

// app is everything a command needs to query stories
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	backend *service.Backend
	svc     *service.Service
}

func (a *app) Close() { a.backend.Close() }

// openApp loads config and wires the configured story source
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error (run sample-config to generate a template): %w", err)
	}
	log := logger.NewWithWriter(cfg, os.Stderr)

	backend, err := service.OpenBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	policy, err := service.LoadPolicy(cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &app{
		cfg:     cfg,
		log:     log,
		backend: backend,
		svc:     service.New(backend, log, service.WithPolicy(policy)),
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ Error: "+err.Error())
		os.Exit(1)
	}
}
