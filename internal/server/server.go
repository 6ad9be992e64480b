// Package server builds the Sentio API MCP server: one tool per Sentio
// operation plus one resource per project visible to the caller.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sentiomcp/internal/sentio"
)

const (
	Name    = "sentio-api"
	Version = "1.0.0"
)

type Options struct {
	Host       string
	APIKey     string
	Token      string
	HTTPClient *http.Client
}

func (o Options) client() *sentio.Client {
	opts := []sentio.Option{sentio.WithAPIKey(o.APIKey), sentio.WithToken(o.Token)}
	if o.HTTPClient != nil {
		opts = append(opts, sentio.WithHTTPClient(o.HTTPClient))
	}
	return sentio.New(o.Host, opts...)
}

// New logs in with the given credentials, registers every tool group and
// exposes the caller's projects as resources.
func New(ctx context.Context, opts Options) (*mcp.Server, error) {
	api := opts.client()

	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: Version}, nil)

	account, err := api.CurrentAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("logging in to %s: %w", api.Host(), err)
	}
	slog.Info("logged in", "name", account.Name, "user_id", account.UserID, "org_id", account.OrgID)

	t := &tools{api: api, account: account}
	t.registerWeb(server)
	t.registerData(server)
	t.registerPrice(server)
	t.registerAlerts(server)
	t.registerProcessor(server)
	t.registerDebug(server)

	projects, err := api.ProjectList(ctx, account.UserID, account.OrgID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	for _, p := range projects {
		addProjectResource(server, api.Host(), p)
	}
	slog.Debug("project resources registered", "count", len(projects))

	return server, nil
}

func projectURI(host string, p sentio.Project) string {
	return fmt.Sprintf("%s/%s/%s", host, p.OwnerName, p.Slug)
}

func addProjectResource(server *mcp.Server, host string, p sentio.Project) {
	raw := p.Raw
	server.AddResource(&mcp.Resource{
		Name:     p.Slug,
		URI:      projectURI(host, p),
		MIMEType: "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(raw),
		}}}, nil
	})
}

type tools struct {
	api     *sentio.Client
	account *sentio.Account
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func rawResult(raw json.RawMessage, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(raw)), nil, nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return textResult(string(b)), nil, nil
}
