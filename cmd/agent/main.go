package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/servicemon/agent/internal/agent"
	"github.com/servicemon/agent/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("MONITOR_CONFIG"), "path to the YAML config file")
	flag.Parse()

	// Load configuration from the optional file plus environment variables
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Placeholder credentials are the only fatal startup condition; the
	// agent must exit before touching the network.
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg)

	logger.Info("starting service monitor agent",
		"version", config.Version,
		"build_time", config.BuildTime,
		"base_url", cfg.BaseURL,
		"debug", cfg.Debug,
	)

	// Create context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	a := agent.New(cfg, logger)
	if err := a.Run(ctx); err != nil {
		logger.Error("agent exited with error", "err", err)
		os.Exit(1)
	}

	logger.Info("agent stopped cleanly")
}
