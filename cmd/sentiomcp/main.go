package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sentiomcp/internal/config"
	"sentiomcp/internal/logger"
	"sentiomcp/internal/trace"
)

var configPath string

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:           "sentiomcp",
		Short:         "MCP server and client for the Sentio API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newExampleCmd(&exampleOptions{}))
	rootCmd.AddCommand(runsCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// initTracing starts the exporter and returns a func that flushes it.
func initTracing(ctx context.Context, cfg *config.Config) (func(), error) {
	shutdown, err := trace.Init(ctx, cfg.Trace)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("shutting down tracing", "error", err)
		}
	}, nil
}
