package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sentiomcp/internal/calltrace"
	"sentiomcp/internal/sentio"
)

const (
	defaultDetailsDepth = 2
	defaultTraceDepth   = 3
)

type traceInput struct {
	Owner             string `json:"owner" jsonschema:"Project owner"`
	Slug              string `json:"slug" jsonschema:"Project slug"`
	ChainID           string `json:"chainId" jsonschema:"Numeric chain ID, e.g. 1 for Ethereum"`
	TxHash            string `json:"txHash" jsonschema:"Transaction hash (0x...)"`
	WithInternalCalls *bool  `json:"withInternalCalls,omitempty" jsonschema:"Include decoded internal calls"`
	DisableOptimizer  *bool  `json:"disableOptimizer,omitempty" jsonschema:"Disable optimizer for higher internal call accuracy"`
	IgnoreGasCost     *bool  `json:"ignoreGasCost,omitempty" jsonschema:"Only effective when disableOptimizer=true"`
}

type traceDetailsInput struct {
	Owner             string `json:"owner" jsonschema:"Project owner"`
	Slug              string `json:"slug" jsonschema:"Project slug"`
	ChainID           string `json:"chainId" jsonschema:"Numeric chain ID, e.g. 1 for Ethereum"`
	TxHash            string `json:"txHash" jsonschema:"Transaction hash (0x...)"`
	CallPath          string `json:"callPath,omitempty" jsonschema:"Call path ('0' for root, '0.2.1' for nested calls). Get paths from getCallTraceSummary failedCalls."`
	MaxDepth          *int   `json:"maxDepth,omitempty" jsonschema:"Maximum depth to show from this call (default: 2, 0 for unlimited)"`
	WithInternalCalls *bool  `json:"withInternalCalls,omitempty" jsonschema:"Include decoded internal calls"`
	DisableOptimizer  *bool  `json:"disableOptimizer,omitempty" jsonschema:"Disable optimizer for higher internal call accuracy"`
	IgnoreGasCost     *bool  `json:"ignoreGasCost,omitempty" jsonschema:"Only effective when disableOptimizer=true"`
}

func (in traceDetailsInput) trace() traceInput {
	return traceInput{
		Owner: in.Owner, Slug: in.Slug, ChainID: in.ChainID, TxHash: in.TxHash,
		WithInternalCalls: in.WithInternalCalls, DisableOptimizer: in.DisableOptimizer, IgnoreGasCost: in.IgnoreGasCost,
	}
}

type traceByTxInput struct {
	Owner             string `json:"owner" jsonschema:"Project owner"`
	Slug              string `json:"slug" jsonschema:"Project slug"`
	ChainID           string `json:"chainId" jsonschema:"Numeric chain ID, e.g. 1 for Ethereum"`
	TxHash            string `json:"txHash" jsonschema:"Transaction hash (0x...)"`
	MaxDepth          *int   `json:"maxDepth,omitempty" jsonschema:"Maximum call depth to return (default: 3, use 0 for unlimited). Helps manage large traces."`
	WithInternalCalls *bool  `json:"withInternalCalls,omitempty" jsonschema:"Include decoded internal calls"`
	DisableOptimizer  *bool  `json:"disableOptimizer,omitempty" jsonschema:"Disable optimizer for higher internal call accuracy"`
	IgnoreGasCost     *bool  `json:"ignoreGasCost,omitempty" jsonschema:"Only effective when disableOptimizer=true"`
}

func (in traceByTxInput) trace() traceInput {
	return traceInput{
		Owner: in.Owner, Slug: in.Slug, ChainID: in.ChainID, TxHash: in.TxHash,
		WithInternalCalls: in.WithInternalCalls, DisableOptimizer: in.DisableOptimizer, IgnoreGasCost: in.IgnoreGasCost,
	}
}

func depthOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func (t *tools) fetchTrace(ctx context.Context, in traceInput) (any, error) {
	raw, err := t.api.CallTrace(ctx, in.Owner, in.Slug, in.ChainID, in.TxHash, sentio.CallTraceOptions{
		WithInternalCalls: in.WithInternalCalls,
		DisableOptimizer:  in.DisableOptimizer,
		IgnoreGasCost:     in.IgnoreGasCost,
	})
	if err != nil {
		return nil, err
	}
	var trace any
	if err := json.Unmarshal(raw, &trace); err != nil {
		return nil, fmt.Errorf("decoding call trace: %w", err)
	}
	return trace, nil
}

func (t *tools) registerDebug(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "getCallTraceSummary",
		Description: "Get a high-level summary of call trace by transaction. Use this first to understand the transaction before fetching full details.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in traceInput) (*mcp.CallToolResult, any, error) {
		trace, err := t.fetchTrace(ctx, in)
		if err != nil {
			return nil, nil, err
		}
		return jsonResult(calltrace.Summarize(trace))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "getCallTraceDetails",
		Description: "Get details for a specific call by path. Use path from getCallTraceSummary (e.g., '0.2.1' for root->3rd call->2nd subcall).",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in traceDetailsInput) (*mcp.CallToolResult, any, error) {
		trace, err := t.fetchTrace(ctx, in.trace())
		if err != nil {
			return nil, nil, err
		}
		details, err := calltrace.CallDetails(trace, in.CallPath, depthOr(in.MaxDepth, defaultDetailsDepth))
		if errors.Is(err, calltrace.ErrPathNotFound) {
			return nil, nil, fmt.Errorf("call path '%s' not found in trace. Verify path from getCallTraceSummary", in.CallPath)
		}
		if err != nil {
			return nil, nil, err
		}
		return jsonResult(details)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "getCallTraceByTransaction",
		Description: "Get call trace by transaction with depth limiting. For large traces, use getCallTraceSummary first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in traceByTxInput) (*mcp.CallToolResult, any, error) {
		trace, err := t.fetchTrace(ctx, in.trace())
		if err != nil {
			return nil, nil, err
		}
		return jsonResult(calltrace.Limit(trace, depthOr(in.MaxDepth, defaultTraceDepth)))
	})
}
