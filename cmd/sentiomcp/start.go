package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"sentiomcp/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Serve the Sentio MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		flush, err := initTracing(ctx, cfg)
		if err != nil {
			return err
		}
		defer flush()

		srv, err := server.New(ctx, server.Options{
			Host:   cfg.Sentio.Host,
			APIKey: cfg.Sentio.APIKey,
			Token:  cfg.Sentio.Token,
		})
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		slog.Info("serving over stdio", "host", cfg.Sentio.Host)
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
