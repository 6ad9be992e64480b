package mcpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiomcp/internal/config"
)

type priceInput struct {
	Symbol string `json:"symbol,omitempty" jsonschema:"coin symbol"`
}

func newPriceServer(name string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: "v0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "priceListCoins", Description: "List all available coins"},
		func(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{
				&mcp.TextContent{Text: `{"coins":["ETH","BTC"]}`},
				&mcp.EmbeddedResource{Resource: &mcp.ResourceContents{URI: "sentio://coins", MIMEType: "application/json", Text: `{"total":2}`}},
			}}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "getPrice", Description: "Get the price of a coin"},
		func(ctx context.Context, req *mcp.CallToolRequest, in priceInput) (*mcp.CallToolResult, any, error) {
			if in.Symbol == "" {
				return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: "symbol is required"}}}, nil, nil
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: in.Symbol + "=3000"}}}, nil, nil
		})
	return server
}

func sseServer(t *testing.T, server *mcp.Server, check func(*http.Request)) *httptest.Server {
	t.Helper()
	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		if check != nil {
			check(r)
		}
		return server
	}, nil)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_GetToolsSSE(t *testing.T) {
	var apiKey string
	ts := sseServer(t, newPriceServer("sentio"), func(r *http.Request) { apiKey = r.Header.Get("api-key") })

	c := New(map[string]*config.ServerConfig{
		"sentio": {URL: ts.URL, Transport: TransportSSE, Headers: map[string]string{"api-key": "k1"}},
	})
	defer c.Close()

	tools, err := c.GetTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "k1", apiKey)

	byName := map[string]*Tool{}
	for _, tl := range tools {
		byName[tl.Name()] = tl.(*Tool)
	}

	list := byName["priceListCoins"]
	require.NotNil(t, list)
	assert.Equal(t, "sentio", list.Server())
	assert.Equal(t, "List all available coins", list.Description())
	assert.Equal(t, "object", list.InputSchema().(map[string]any)["type"])

	out, err := list.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "{\"coins\":[\"ETH\",\"BTC\"]}\n{\"total\":2}", out)

	price := byName["getPrice"]
	require.NotNil(t, price)
	props := price.InputSchema().(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, props, "symbol")

	out, err = price.Execute(context.Background(), `{"symbol":"ETH"}`)
	require.NoError(t, err)
	assert.Equal(t, "ETH=3000", out)

	_, err = price.Execute(context.Background(), `{}`)
	assert.EqualError(t, err, "symbol is required")

	_, err = price.Execute(context.Background(), `not json`)
	assert.ErrorContains(t, err, "parsing getPrice arguments")
}

func TestClient_StreamableHTTP(t *testing.T) {
	server := newPriceServer("sentio")
	ts := httptest.NewServer(mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil))
	defer ts.Close()

	c := New(map[string]*config.ServerConfig{
		"sentio": {URL: ts.URL, Transport: TransportStreamableHTTP},
	})
	defer c.Close()

	tools, err := c.GetTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 2)
}

func TestClient_DuplicateToolsFirstServerWins(t *testing.T) {
	a := sseServer(t, newPriceServer("a"), nil)
	b := sseServer(t, newPriceServer("b"), nil)

	c := New(map[string]*config.ServerConfig{
		"beta":  {URL: b.URL, Transport: TransportSSE},
		"alpha": {URL: a.URL, Transport: TransportSSE},
	})
	defer c.Close()

	assert.Equal(t, []string{"alpha", "beta"}, c.Servers())

	tools, err := c.GetTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	for _, tl := range tools {
		assert.Equal(t, "alpha", tl.(*Tool).Server())
	}
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(map[string]*config.ServerConfig{"sentio": {URL: url + "/sse", Transport: TransportSSE}})
	defer c.Close()

	_, err := c.GetTools(context.Background())
	assert.ErrorContains(t, err, "connecting to sentio")
}

func TestClient_TransportErrors(t *testing.T) {
	tcs := []struct {
		name string
		cfg  *config.ServerConfig
		err  string
	}{
		{name: "unknown", cfg: &config.ServerConfig{URL: "http://x", Transport: "websocket"}, err: `server s: unsupported transport "websocket"`},
		{name: "sse without url", cfg: &config.ServerConfig{Transport: TransportSSE}, err: "server s: sse transport requires a url"},
		{name: "stdio without command", cfg: &config.ServerConfig{Transport: TransportStdio}, err: "server s: stdio transport requires a command"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			c := New(map[string]*config.ServerConfig{"s": tc.cfg})
			_, err := c.GetTools(context.Background())
			assert.EqualError(t, err, tc.err)
		})
	}

	_, err := New(nil).Session(context.Background(), "missing")
	assert.EqualError(t, err, `unknown MCP server "missing"`)
}

func TestClient_CloseIsRepeatable(t *testing.T) {
	ts := sseServer(t, newPriceServer("sentio"), nil)
	c := New(map[string]*config.ServerConfig{"sentio": {URL: ts.URL}})

	_, err := c.GetTools(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestResultText(t *testing.T) {
	assert.Empty(t, ResultText(nil))

	res := &mcp.CallToolResult{Content: []mcp.Content{
		&mcp.TextContent{Text: "a"},
		&mcp.ImageContent{MIMEType: "image/png", Data: []byte{1, 2, 3}},
		&mcp.ResourceLink{URI: "sentio://projects/x", Name: "x"},
		&mcp.EmbeddedResource{Resource: &mcp.ResourceContents{URI: "sentio://b", Blob: []byte("hi")}},
	}}
	assert.Equal(t, "a\n[image image/png, 3 bytes]\n[resource link sentio://projects/x]\n[resource sentio://b: aGk=]", ResultText(res))

	structured := &mcp.CallToolResult{StructuredContent: map[string]any{"price": 1.5}}
	assert.JSONEq(t, `{"price":1.5}`, ResultText(structured))
}

func TestSchemaMap(t *testing.T) {
	assert.Equal(t, "object", schemaMap(nil)["type"])
	assert.Equal(t, "object", schemaMap(map[string]any{"properties": map[string]any{}})["type"])

	m := schemaMap(map[string]any{"type": "object", "required": []string{"symbol"}})
	assert.Equal(t, []any{"symbol"}, m["required"])

	// Unmarshalable values fall back to an empty object schema.
	assert.Equal(t, "object", schemaMap(func() {})["type"])
}
