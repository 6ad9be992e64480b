// Package mcpclient connects to a set of named MCP servers and exposes their
// tools to the agent.
package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"slices"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sentiomcp/internal/agent"
	"sentiomcp/internal/config"
)

const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable_http"
	TransportStdio          = "stdio"
)

type Option func(*Client)

// WithHTTPClient sets the HTTP client used by the sse and streamable_http
// transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client is a multi-server MCP client. Sessions are opened on first use and
// stay open until Close.
type Client struct {
	servers    map[string]*config.ServerConfig
	impl       *mcp.Implementation
	httpClient *http.Client

	mu       sync.Mutex
	sessions map[string]*mcp.ClientSession
}

func New(servers map[string]*config.ServerConfig, opts ...Option) *Client {
	c := &Client{
		servers:  servers,
		impl:     &mcp.Implementation{Name: "sentiomcp", Version: "v0.1.0"},
		sessions: make(map[string]*mcp.ClientSession),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Servers returns the configured server labels in sorted order.
func (c *Client) Servers() []string {
	names := make([]string, 0, len(c.servers))
	for name := range c.servers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Session returns the session for the named server, connecting if needed.
func (c *Client) Session(ctx context.Context, name string) (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[name]; ok {
		return s, nil
	}

	cfg, ok := c.servers[name]
	if !ok || cfg == nil {
		return nil, fmt.Errorf("unknown MCP server %q", name)
	}

	transport, err := c.transport(cfg)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", name, err)
	}

	client := mcp.NewClient(c.impl, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", name, err)
	}

	slog.Debug("mcp session connected", "server", name, "transport", cfg.Transport, "session_id", session.ID())
	c.sessions[name] = session
	return session, nil
}

func (c *Client) transport(cfg *config.ServerConfig) (mcp.Transport, error) {
	switch cfg.Transport {
	case TransportSSE, "":
		if cfg.URL == "" {
			return nil, errors.New("sse transport requires a url")
		}
		return &mcp.SSEClientTransport{Endpoint: cfg.URL, HTTPClient: c.clientFor(cfg)}, nil
	case TransportStreamableHTTP, "streamable-http", "http":
		if cfg.URL == "" {
			return nil, errors.New("streamable_http transport requires a url")
		}
		return &mcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: c.clientFor(cfg)}, nil
	case TransportStdio:
		if cfg.Command == "" {
			return nil, errors.New("stdio transport requires a command")
		}
		return &mcp.CommandTransport{Command: exec.Command(cfg.Command, cfg.Args...)}, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}

func (c *Client) clientFor(cfg *config.ServerConfig) *http.Client {
	base := c.httpClient
	if base == nil {
		base = http.DefaultClient
	}
	if len(cfg.Headers) == 0 {
		return base
	}
	hc := *base
	inner := hc.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	hc.Transport = &headerTransport{inner: inner, headers: cfg.Headers}
	return &hc
}

// headerTransport adds static headers, e.g. api-key, to every request.
type headerTransport struct {
	inner   http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.inner.RoundTrip(req)
}

// GetTools connects to every server and returns their tools, servers
// visited in label order. When two servers expose the same tool name the
// first one wins.
func (c *Client) GetTools(ctx context.Context) ([]agent.Tool, error) {
	var tools []agent.Tool
	seen := make(map[string]string)

	for _, name := range c.Servers() {
		serverTools, err := c.ServerTools(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, t := range serverTools {
			if prev, ok := seen[t.Name()]; ok {
				slog.Warn("duplicate MCP tool ignored", "tool", t.Name(), "server", name, "kept_from", prev)
				continue
			}
			seen[t.Name()] = name
			tools = append(tools, t)
		}
	}

	slog.Info("mcp tools discovered", "servers", len(c.servers), "tools", len(tools))
	return tools, nil
}

// ServerTools lists every tool of one server, following pagination.
func (c *Client) ServerTools(ctx context.Context, name string) ([]*Tool, error) {
	session, err := c.Session(ctx, name)
	if err != nil {
		return nil, err
	}

	var (
		tools  []*Tool
		cursor string
	)
	for {
		res, err := session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("listing tools of %s: %w", name, err)
		}
		for _, def := range res.Tools {
			tools = append(tools, newTool(name, session, def))
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return tools, nil
}

// Close closes every open session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, s := range c.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
		delete(c.sessions, name)
	}
	return errors.Join(errs...)
}
