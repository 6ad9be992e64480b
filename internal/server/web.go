package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type projectListInput struct {
	UserID string `json:"userId,omitempty" jsonschema:"User ID, defaults to the logged in user"`
	OrgID  string `json:"orgId,omitempty" jsonschema:"Organization ID"`
}

type projectInput struct {
	Owner string `json:"owner" jsonschema:"Project owner"`
	Slug  string `json:"slug" jsonschema:"Project slug"`
}

type dashboardInput struct {
	Owner       string `json:"owner" jsonschema:"Project owner"`
	Slug        string `json:"slug" jsonschema:"Project slug"`
	DashboardID string `json:"dashboardId" jsonschema:"Dashboard ID"`
}

type importDashboardInput struct {
	DashboardID   string `json:"dashboardId" jsonschema:"Target Dashboard ID"`
	DashboardJSON string `json:"dashboardJson" jsonschema:"Dashboard JSON to import"`
}

type dashboardIDInput struct {
	DashboardID string `json:"dashboardId" jsonschema:"Dashboard ID"`
}

func (t *tools) registerWeb(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{Name: "getProjectList", Description: "Get project list"}, t.projectList)

	mcp.AddTool(server, &mcp.Tool{Name: "getProject", Description: "Get project"},
		func(ctx context.Context, req *mcp.CallToolRequest, in projectInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.Project(ctx, in.Owner, in.Slug))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "listDashboards", Description: "List all dashboards in a project"},
		func(ctx context.Context, req *mcp.CallToolRequest, in projectInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.ListDashboards(ctx, in.Owner, in.Slug))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "getDashboard", Description: "Get a dashboard by id"},
		func(ctx context.Context, req *mcp.CallToolRequest, in dashboardInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.GetDashboard(ctx, in.Owner, in.Slug, in.DashboardID))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "importDashboard", Description: "Import a dashboard to another dashboard"},
		func(ctx context.Context, req *mcp.CallToolRequest, in importDashboardInput) (*mcp.CallToolResult, any, error) {
			if !json.Valid([]byte(in.DashboardJSON)) {
				return nil, nil, errors.New("dashboardJson is not valid JSON")
			}
			return rawResult(t.api.ImportDashboard(ctx, in.DashboardID, json.RawMessage(in.DashboardJSON)))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "deleteDashboard", Description: "Delete a dashboard by id"},
		func(ctx context.Context, req *mcp.CallToolRequest, in dashboardIDInput) (*mcp.CallToolResult, any, error) {
			if _, err := t.api.DeleteDashboard(ctx, in.DashboardID); err != nil {
				return nil, nil, err
			}
			return textResult("Dashboard deleted successfully"), nil, nil
		})

	mcp.AddTool(server, &mcp.Tool{Name: "exportDashboard", Description: "Export a dashboard to json"},
		func(ctx context.Context, req *mcp.CallToolRequest, in dashboardIDInput) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.ExportDashboard(ctx, in.DashboardID))
		})
}

// projectList returns one embedded resource per project.
func (t *tools) projectList(ctx context.Context, req *mcp.CallToolRequest, in projectListInput) (*mcp.CallToolResult, any, error) {
	userID, orgID := in.UserID, in.OrgID
	if userID == "" && orgID == "" {
		userID, orgID = t.account.UserID, t.account.OrgID
	}

	projects, err := t.api.ProjectList(ctx, userID, orgID)
	if err != nil {
		return nil, nil, err
	}

	res := &mcp.CallToolResult{Content: make([]mcp.Content, 0, len(projects))}
	for _, p := range projects {
		res.Content = append(res.Content, &mcp.EmbeddedResource{Resource: &mcp.ResourceContents{
			URI:      projectURI(t.api.Host(), p),
			MIMEType: "application/json",
			Text:     string(p.Raw),
		}})
	}
	return res, nil, nil
}
