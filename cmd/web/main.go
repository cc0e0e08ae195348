package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"sprint-metrics/config"
	"sprint-metrics/jobs"
	"sprint-metrics/logger"
	"sprint-metrics/service"
	"sprint-metrics/web"
)

func main() {
	// Parse command line flags
	var configFile, addr string
	flag.StringVar(&configFile, "config", "config.json", "Path to the JSON or YAML config file")
	flag.StringVar(&addr, "addr", "", "Address to listen on (overrides http_addr)")
	flag.Parse()

	cfg, err := config.LoadConfig(configFile)
	log := logger.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := service.OpenBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("opening story source")
	}
	defer backend.Close()

	policy, err := service.LoadPolicy(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("loading readiness policy")
	}
	svc := service.New(backend, log, service.WithPolicy(policy))

	refresher, err := jobs.NewRefresher(cfg.RefreshCron, cfg.Location(), backend, svc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduling refresh")
	}
	refresher.Start()
	defer refresher.Stop()

	// Create and start the server
	server := web.NewServer(svc, log)
	if err := server.Serve(ctx, cfg.HTTPAddr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		stop()
		refresher.Stop()
		backend.Close()
		os.Exit(1)
	}
}
