package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type alertRuleIDInput struct {
	ID string `json:"id" jsonschema:"Alert rule ID"`
}

type saveAlertRuleInput struct {
	ID   string         `json:"id" jsonschema:"Alert rule ID"`
	Rule map[string]any `json:"rule" jsonschema:"Alert rule configuration"`
}

type alertInput struct {
	RuleID string `json:"ruleId" jsonschema:"Alert rule ID"`
}

type processorInput = projectInput

func (t *tools) registerAlerts(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{Name: "getAlertRules", Description: "Get alert rules"},
		func(ctx context.Context, req *mcp.CallToolRequest, in projectInput) (*mcp.CallToolResult, any, error) {
			projectID, err := t.api.ProjectID(ctx, in.Owner, in.Slug)
			if err != nil {
				return nil, nil, err
			}
			return rawResult(t.api.AlertRules(ctx, projectID))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "deleteAlertRule", Description: "Delete an alert rule"},
		func(ctx context.Context, req *mcp.CallToolRequest, in alertRuleIDInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.DeleteAlertRule(ctx, in.ID))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "saveAlertRule", Description: "Save an alert rule"},
		func(ctx context.Context, req *mcp.CallToolRequest, in saveAlertRuleInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.SaveAlertRule(ctx, in.ID, in.Rule))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "getAlert", Description: "Get alerts for a specific rule"},
		func(ctx context.Context, req *mcp.CallToolRequest, in alertInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.Alerts(ctx, in.RuleID))
		})
}

func (t *tools) registerProcessor(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{Name: "getProcessorStatus", Description: "Get processor status"},
		func(ctx context.Context, req *mcp.CallToolRequest, in processorInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.ProcessorStatus(ctx, in.Owner, in.Slug))
		})
}
