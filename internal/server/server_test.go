package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const traceJSON = `{
	"type": "CALL", "from": "0xa", "to": "0xb", "gasUsed": "0x10",
	"calls": [
		{"type": "CALL", "from": "0xb", "to": "0xc", "error": "execution reverted", "calls": [
			{"type": "CALL", "from": "0xc", "to": "0xd"}
		]}
	]
}`

type fakeSentio struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string]map[string]any
	apiKey string
}

func newFakeSentio(t *testing.T) *fakeSentio {
	t.Helper()
	f := &fakeSentio{bodies: map[string]map[string]any{}}

	mux := http.NewServeMux()
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, body)
		}
	}
	mux.HandleFunc("GET /api/v1/users", reply(`{"id":"u1","username":"alice"}`))
	mux.HandleFunc("GET /api/v1/projects", reply(`{
		"projects": [{"id":"p1","ownerName":"alice","slug":"one"}],
		"sharedProjects": [{"id":"p2","ownerName":"bob","slug":"two"}]
	}`))
	mux.HandleFunc("GET /api/v1/prices/coins", reply(`{"coins":[{"symbol":"ETH"},{"symbol":"BTC"}]}`))
	mux.HandleFunc("GET /api/v1/prices", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"query": r.URL.RawQuery, "price": 3000})
	})
	mux.HandleFunc("GET /api/v1/project/alice/one", reply(`{"project":{"id":"p1"}}`))
	mux.HandleFunc("GET /api/v1/alerts/rule/project/p1", reply(`{"rules":[{"id":"r1"}]}`))
	mux.HandleFunc("GET /api/v1/solidity/alice/one/1/transaction/0xabc/call_trace", reply(traceJSON))
	mux.HandleFunc("POST /api/v1/analytics/alice/one/sql/execute", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.bodies["sql"] = body
		f.mu.Unlock()
		io.WriteString(w, `{"result":{"rows":[]}}`)
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.apiKey = r.Header.Get("api-key")
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func connect(t *testing.T, srv *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func newSession(t *testing.T, f *fakeSentio) *mcp.ClientSession {
	t.Helper()
	srv, err := New(context.Background(), Options{Host: f.URL, APIKey: "key-1", HTTPClient: f.Client()})
	require.NoError(t, err)
	return connect(t, srv)
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n"), res.IsError
}

func TestNew_RegistersTools(t *testing.T) {
	f := newFakeSentio(t)
	cs := newSession(t, f)

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"deleteAlertRule", "deleteDashboard", "executeSql", "exportDashboard",
		"getAlert", "getAlertRules", "getCallTraceByTransaction", "getCallTraceDetails",
		"getCallTraceSummary", "getDashboard", "getMetrics", "getPrice", "getProcessorStatus",
		"getProject", "getProjectList", "importDashboard", "listDashboards", "priceListCoins",
		"queryEventLog", "queryRange", "saveAlertRule",
	}, names)
	assert.Equal(t, "key-1", f.apiKey)
}

func TestNew_LoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(context.Background(), Options{Host: srv.URL, HTTPClient: srv.Client()})
	assert.ErrorContains(t, err, "logging in to "+srv.URL)
}

func TestPriceTools(t *testing.T) {
	cs := newSession(t, newFakeSentio(t))

	out, isErr := call(t, cs, "priceListCoins", nil)
	assert.False(t, isErr)
	assert.JSONEq(t, `{"coins":[{"symbol":"ETH"},{"symbol":"BTC"}]}`, out)

	out, isErr = call(t, cs, "getPrice", map[string]any{"symbol": "ETH", "timestamp": "2024-01-02T03:04:05Z"})
	assert.False(t, isErr)
	assert.Contains(t, out, `coinId.symbol=ETH`)
	assert.Contains(t, out, `timestamp=2024-01-02T03%3A04%3A05Z`)

	out, isErr = call(t, cs, "getPrice", map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, out, "either symbol or address is required")

	_, isErr = call(t, cs, "getPrice", map[string]any{"symbol": "ETH", "timestamp": "yesterday"})
	assert.True(t, isErr)
}

func TestWebTools(t *testing.T) {
	cs := newSession(t, newFakeSentio(t))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "getProjectList", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 2)
	emb, ok := res.Content[1].(*mcp.EmbeddedResource)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(emb.Resource.URI, "/bob/two"))
	assert.Equal(t, "application/json", emb.Resource.MIMEType)
	assert.JSONEq(t, `{"id":"p2","ownerName":"bob","slug":"two"}`, emb.Resource.Text)

	_, isErr := call(t, cs, "importDashboard", map[string]any{"dashboardId": "d1", "dashboardJson": "{nope"})
	assert.True(t, isErr)
}

func TestDataTools_ExecuteSQLDefaults(t *testing.T) {
	f := newFakeSentio(t)
	cs := newSession(t, f)

	_, isErr := call(t, cs, "executeSql", map[string]any{
		"owner": "alice", "slug": "one", "query": "select * from coins where symbol = {{symbol}}",
		"parameters": map[string]any{"symbol": "ETH"},
	})
	require.False(t, isErr)

	f.mu.Lock()
	body := f.bodies["sql"]
	f.mu.Unlock()
	sqlQuery := body["sqlQuery"].(map[string]any)
	assert.EqualValues(t, 100, sqlQuery["size"])
	assert.EqualValues(t, 0, body["version"])
	assert.Equal(t, map[string]any{"fields": map[string]any{"symbol": map[string]any{"stringValue": "ETH"}}}, sqlQuery["parameters"])
}

func TestAlertTools_ResolvesProjectID(t *testing.T) {
	cs := newSession(t, newFakeSentio(t))

	out, isErr := call(t, cs, "getAlertRules", map[string]any{"owner": "alice", "slug": "one"})
	require.False(t, isErr)
	assert.JSONEq(t, `{"rules":[{"id":"r1"}]}`, out)

	_, isErr = call(t, cs, "getAlertRules", map[string]any{"owner": "nobody", "slug": "none"})
	assert.True(t, isErr)
}

func TestDebugTools(t *testing.T) {
	cs := newSession(t, newFakeSentio(t))
	base := map[string]any{"owner": "alice", "slug": "one", "chainId": "1", "txHash": "0xabc"}
	with := func(extra map[string]any) map[string]any {
		m := map[string]any{}
		for k, v := range base {
			m[k] = v
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	out, isErr := call(t, cs, "getCallTraceSummary", base)
	require.False(t, isErr)
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 3, summary["summary"].(map[string]any)["totalCalls"])
	assert.EqualValues(t, 1, summary["summary"].(map[string]any)["failedCallsCount"])
	assert.Equal(t, "0.0", summary["failedCalls"].([]any)[0].(map[string]any)["path"])

	out, isErr = call(t, cs, "getCallTraceDetails", with(map[string]any{"callPath": "0.0", "maxDepth": 1}))
	require.False(t, isErr)
	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &details))
	assert.Equal(t, true, details["call"].(map[string]any)["nestedCallsOmitted"])
	assert.Equal(t, true, details["metadata"].(map[string]any)["wasTruncated"])

	out, isErr = call(t, cs, "getCallTraceDetails", with(map[string]any{"callPath": "0.7"}))
	assert.True(t, isErr)
	assert.Contains(t, out, "call path '0.7' not found in trace")

	out, isErr = call(t, cs, "getCallTraceByTransaction", with(map[string]any{"maxDepth": 0}))
	require.False(t, isErr)
	var full map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &full))
	assert.Equal(t, false, full["metadata"].(map[string]any)["wasTruncated"])
	assert.NotContains(t, full["metadata"], "totalCallsInOriginal")

	out, isErr = call(t, cs, "getCallTraceByTransaction", base)
	require.False(t, isErr)
	require.NoError(t, json.Unmarshal([]byte(out), &full))
	assert.EqualValues(t, 3, full["metadata"].(map[string]any)["maxDepthApplied"])
	assert.EqualValues(t, 3, full["metadata"].(map[string]any)["totalCallsInOriginal"])
}

func TestProjectResources(t *testing.T) {
	f := newFakeSentio(t)
	cs := newSession(t, f)
	ctx := context.Background()

	res, err := cs.ListResources(ctx, &mcp.ListResourcesParams{})
	require.NoError(t, err)
	require.Len(t, res.Resources, 2)

	uris := map[string]string{}
	for _, r := range res.Resources {
		uris[r.Name] = r.URI
	}
	assert.Equal(t, f.URL+"/alice/one", uris["one"])
	assert.Equal(t, f.URL+"/bob/two", uris["two"])

	read, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: f.URL + "/alice/one"})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	assert.JSONEq(t, `{"id":"p1","ownerName":"alice","slug":"one"}`, read.Contents[0].Text)
}
