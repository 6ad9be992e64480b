package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sentiomcp/internal/sentio"
)

const defaultSQLSize = 100

type executeSQLInput struct {
	Owner      string         `json:"owner" jsonschema:"Project owner"`
	Slug       string         `json:"slug" jsonschema:"Project slug"`
	Query      string         `json:"query" jsonschema:"SQL query to execute"`
	Version    int            `json:"version,omitempty" jsonschema:"Version of the project, default 0"`
	Cursor     string         `json:"cursor,omitempty" jsonschema:"Cursor to paginate results"`
	Size       *int           `json:"size,omitempty" jsonschema:"Number of results to return, default 100"`
	Parameters map[string]any `json:"parameters,omitempty" jsonschema:"Parameters to pass to the query"`
}

type logFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type eventLogQuery struct {
	From    string      `json:"from,omitempty"`
	To      string      `json:"to,omitempty"`
	Limit   *int        `json:"limit,omitempty"`
	Offset  *int        `json:"offset,omitempty"`
	Filters []logFilter `json:"filters,omitempty"`
}

type queryEventLogInput struct {
	Owner string        `json:"owner" jsonschema:"Project owner"`
	Slug  string        `json:"slug" jsonschema:"Project slug"`
	Query eventLogQuery `json:"query" jsonschema:"Event log query"`
}

type metricsInput struct {
	Version int `json:"version,omitempty" jsonschema:"Version of the project, default 0"`
}

type timeRange struct {
	Start    string  `json:"start,omitempty" jsonschema:"Start time, default now-30d"`
	End      string  `json:"end,omitempty" jsonschema:"End time, default now"`
	Step     float64 `json:"step" jsonschema:"Step"`
	Timezone string  `json:"timezone,omitempty" jsonschema:"Timezone, default UTC"`
}

type metricFunction struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type metricQuery struct {
	Query         string            `json:"query,omitempty"`
	Alias         string            `json:"alias,omitempty"`
	ID            string            `json:"id,omitempty"`
	LabelSelector map[string]string `json:"labelSelector,omitempty"`
	Aggregate     map[string]any    `json:"aggregate,omitempty"`
	Functions     []metricFunction  `json:"functions,omitempty"`
	Color         string            `json:"color,omitempty"`
	Disabled      bool              `json:"disabled,omitempty"`
}

type queryRangeInput struct {
	Owner     string        `json:"owner" jsonschema:"Project owner"`
	Slug      string        `json:"slug" jsonschema:"Project slug"`
	TimeRange timeRange     `json:"timeRange"`
	Queries   []metricQuery `json:"queries" jsonschema:"Array of metric queries"`
	Version   int           `json:"version,omitempty" jsonschema:"Version of the project, default 0"`
}

func (t *tools) registerData(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{Name: "executeSql", Description: "Execute SQL in a project"},
		func(ctx context.Context, req *mcp.CallToolRequest, in executeSQLInput) (*mcp.CallToolResult, any, error) {
			size := defaultSQLSize
			if in.Size != nil {
				size = *in.Size
			}
			return rawResult(t.api.ExecuteSQL(ctx, in.Owner, in.Slug, sentio.SQLQuery{
				SQL:        in.Query,
				Size:       size,
				Version:    in.Version,
				Cursor:     in.Cursor,
				Parameters: in.Parameters,
			}))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "queryEventLog", Description: "Query event logs"},
		func(ctx context.Context, req *mcp.CallToolRequest, in queryEventLogInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.QueryEventLog(ctx, in.Owner, in.Slug, in.Query))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "getMetrics", Description: "Get a list of metrics in a project"},
		func(ctx context.Context, req *mcp.CallToolRequest, in metricsInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.Metrics(ctx, in.Version))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "queryRange", Description: "Query metrics range"},
		func(ctx context.Context, req *mcp.CallToolRequest, in queryRangeInput) (*mcp.CallToolResult, any, error) {
			tr := in.TimeRange
			if tr.Start == "" {
				tr.Start = "now-30d"
			}
			if tr.End == "" {
				tr.End = "now"
			}
			if tr.Timezone == "" {
				tr.Timezone = "UTC"
			}
			return rawResult(t.api.QueryRange(ctx, in.Owner, in.Slug, tr, in.Queries, in.Version))
		})
}
