// Package gateway serves the Sentio MCP server over HTTP. Every SSE
// connection gets its own MCP server built with the caller's credentials.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sentiomcp/internal/history"
	"sentiomcp/internal/server"
)

// Builder creates the MCP server for one authenticated caller.
type Builder func(ctx context.Context, creds server.Credentials) (*mcp.Server, error)

type RunLister interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
}

type Option func(*Server)

// WithDefaultKey sets the API key used for callers that send no credentials.
func WithDefaultKey(key string) Option {
	return func(s *Server) { s.defaultKey = key }
}

// WithRuns exposes recorded runs at GET /v1/runs.
func WithRuns(runs RunLister) Option {
	return func(s *Server) { s.runs = runs }
}

type Server struct {
	build      Builder
	defaultKey string
	runs       RunLister
	mux        *http.ServeMux
}

func NewServer(build Builder, opts ...Option) *Server {
	s := &Server{
		build: build,
		mux:   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/sse", s.authenticate(mcp.NewSSEHandler(s.sessionServer, nil)))
	s.mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mcp server listening", "addr", addr, "sse", "/sse")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}
