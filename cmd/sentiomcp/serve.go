package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"sentiomcp/internal/db"
	"sentiomcp/internal/gateway"
	"sentiomcp/internal/history"
	"sentiomcp/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Sentio MCP server over HTTP (SSE)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Serve.Addr = serveAddr
		}
		flush, err := initTracing(ctx, cfg)
		if err != nil {
			return err
		}
		defer flush()

		host := cfg.Sentio.Host
		build := func(ctx context.Context, creds server.Credentials) (*mcp.Server, error) {
			return server.New(ctx, creds.Options(host))
		}

		gwOpts := []gateway.Option{gateway.WithDefaultKey(cfg.Sentio.APIKey)}
		if cfg.History.Path != "" {
			database, err := db.Open(ctx, cfg.History.Path)
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer database.Close()
			gwOpts = append(gwOpts, gateway.WithRuns(history.NewStore(database)))
		}

		slog.Info("starting gateway", "addr", cfg.Serve.Addr, "host", host, "history", cfg.History.Path != "")
		return gateway.NewServer(build, gwOpts...).ListenAndServe(ctx, cfg.Serve.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "override listen address")
}
