package sentio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Account is the identity behind the credentials: a user, or an
// organization when an organization API key is used.
type Account struct {
	UserID string
	OrgID  string
	Name   string
	Raw    json.RawMessage
}

// CurrentAccount returns the logged in user, falling back to the
// organization endpoint.
func (c *Client) CurrentAccount(ctx context.Context) (*Account, error) {
	raw, err := c.get(ctx, "/api/v1/users", nil)
	if err == nil {
		return &Account{
			UserID: gjson.GetBytes(raw, "id").String(),
			Name:   gjson.GetBytes(raw, "username").String(),
			Raw:    raw,
		}, nil
	}

	raw, orgErr := c.get(ctx, "/api/v1/organizations", nil)
	if orgErr != nil {
		return nil, fmt.Errorf("resolving account: %w", errors.Join(err, orgErr))
	}
	org := gjson.GetBytes(raw, "organizations.0")
	if !org.Exists() {
		org = gjson.ParseBytes(raw)
	}
	return &Account{
		OrgID: org.Get("id").String(),
		Name:  org.Get("name").String(),
		Raw:   json.RawMessage(org.Raw),
	}, nil
}

type Project struct {
	ID        string
	OwnerName string
	Slug      string
	Raw       json.RawMessage
}

// ProjectList returns own, shared and organization projects in that order.
func (c *Client) ProjectList(ctx context.Context, userID, orgID string) ([]Project, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	if orgID != "" {
		q.Set("organizationId", orgID)
	}
	raw, err := c.get(ctx, "/api/v1/projects", q)
	if err != nil {
		return nil, err
	}

	var projects []Project
	for _, key := range []string{"projects", "sharedProjects", "orgProjects"} {
		gjson.GetBytes(raw, key).ForEach(func(_, p gjson.Result) bool {
			projects = append(projects, Project{
				ID:        p.Get("id").String(),
				OwnerName: p.Get("ownerName").String(),
				Slug:      p.Get("slug").String(),
				Raw:       json.RawMessage(p.Raw),
			})
			return true
		})
	}
	return projects, nil
}

func (c *Client) Project(ctx context.Context, owner, slug string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/project/"+pathEscape(owner, slug), nil)
}

// ProjectID resolves owner/slug to the project id.
func (c *Client) ProjectID(ctx context.Context, owner, slug string) (string, error) {
	raw, err := c.Project(ctx, owner, slug)
	if err != nil {
		return "", err
	}
	id := gjson.GetBytes(raw, "project.id").String()
	if id == "" {
		return "", fmt.Errorf("project %s/%s has no id", owner, slug)
	}
	return id, nil
}

func (c *Client) ListDashboards(ctx context.Context, owner, slug string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/projects/"+pathEscape(owner, slug)+"/dashboards", nil)
}

func (c *Client) GetDashboard(ctx context.Context, owner, slug, dashboardID string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/projects/"+pathEscape(owner, slug, "dashboards", dashboardID), nil)
}

func (c *Client) ImportDashboard(ctx context.Context, dashboardID string, dashboardJSON json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/api/v1/dashboards/json", map[string]any{
		"dashboardId":   dashboardID,
		"dashboardJson": dashboardJSON,
	})
}

func (c *Client) DeleteDashboard(ctx context.Context, dashboardID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, "/api/v1/dashboards/"+url.PathEscape(dashboardID), nil, nil)
}

func (c *Client) ExportDashboard(ctx context.Context, dashboardID string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/dashboards/"+url.PathEscape(dashboardID)+"/json", nil)
}

type SQLQuery struct {
	SQL        string
	Size       int
	Version    int
	Cursor     string
	Parameters map[string]any
}

func (c *Client) ExecuteSQL(ctx context.Context, owner, slug string, q SQLQuery) (json.RawMessage, error) {
	params, err := ToRichStruct(q.Parameters)
	if err != nil {
		return nil, fmt.Errorf("encoding sql parameters: %w", err)
	}

	sqlQuery := map[string]any{"sql": q.SQL, "size": q.Size}
	if params != nil {
		sqlQuery["parameters"] = params
	}
	body := map[string]any{"sqlQuery": sqlQuery, "version": q.Version}
	if q.Cursor != "" {
		body["cursor"] = q.Cursor
	}
	return c.post(ctx, "/api/v1/analytics/"+pathEscape(owner, slug)+"/sql/execute", body)
}

func (c *Client) QueryEventLog(ctx context.Context, owner, slug string, query any) (json.RawMessage, error) {
	return c.post(ctx, "/api/v1/eventlogs/"+pathEscape(owner, slug), query)
}

func (c *Client) Metrics(ctx context.Context, version int) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/metrics", url.Values{"version": {strconv.Itoa(version)}})
}

func (c *Client) QueryRange(ctx context.Context, owner, slug string, timeRange, queries any, version int) (json.RawMessage, error) {
	return c.post(ctx, "/api/v1/metrics/"+pathEscape(owner, slug)+"/query_range", map[string]any{
		"timeRange": timeRange,
		"queries":   queries,
		"version":   version,
	})
}

type PriceQuery struct {
	Symbol    string
	Chain     string
	Address   string
	Timestamp time.Time
}

func (c *Client) Price(ctx context.Context, p PriceQuery) (json.RawMessage, error) {
	q := url.Values{}
	if p.Symbol != "" {
		q.Set("coinId.symbol", p.Symbol)
	}
	if p.Address != "" {
		q.Set("coinId.address.address", p.Address)
	}
	if p.Chain != "" {
		q.Set("coinId.address.chain", p.Chain)
	}
	if !p.Timestamp.IsZero() {
		q.Set("timestamp", p.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	return c.get(ctx, "/api/v1/prices", q)
}

func (c *Client) ListCoins(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/prices/coins", nil)
}

func (c *Client) AlertRules(ctx context.Context, projectID string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/alerts/rule/project/"+url.PathEscape(projectID), nil)
}

func (c *Client) DeleteAlertRule(ctx context.Context, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, "/api/v1/alerts/rule/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SaveAlertRule(ctx context.Context, id string, rule map[string]any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, "/api/v1/alerts/rule/"+url.PathEscape(id), nil, rule)
}

func (c *Client) Alerts(ctx context.Context, ruleID string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/alerts/"+url.PathEscape(ruleID), nil)
}

func (c *Client) ProcessorStatus(ctx context.Context, owner, slug string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/processors/"+pathEscape(owner, slug)+"/status", nil)
}

type CallTraceOptions struct {
	WithInternalCalls *bool
	DisableOptimizer  *bool
	IgnoreGasCost     *bool
}

func (c *Client) CallTrace(ctx context.Context, owner, slug, chainID, txHash string, opts CallTraceOptions) (json.RawMessage, error) {
	q := url.Values{}
	for name, v := range map[string]*bool{
		"withInternalCalls": opts.WithInternalCalls,
		"disableOptimizer":  opts.DisableOptimizer,
		"ignoreGasCost":     opts.IgnoreGasCost,
	} {
		if v != nil {
			q.Set(name, strconv.FormatBool(*v))
		}
	}
	path := "/api/v1/solidity/" + pathEscape(owner, slug, chainID) + "/transaction/" + url.PathEscape(txHash) + "/call_trace"
	return c.get(ctx, path, q)
}
