package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sentiomcp/internal/sentio"
)

type priceInput struct {
	Symbol    string `json:"symbol,omitempty" jsonschema:"Coin Symbol"`
	Timestamp string `json:"timestamp,omitempty" jsonschema:"Timestamp (RFC 3339), defaults to now"`
	Chain     string `json:"chain,omitempty" jsonschema:"Chain"`
	Address   string `json:"address,omitempty" jsonschema:"Address"`
}

func (t *tools) registerPrice(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{Name: "getPrice", Description: "Get price of a given coin"},
		func(ctx context.Context, req *mcp.CallToolRequest, in priceInput) (*mcp.CallToolResult, any, error) {
			if in.Symbol == "" && in.Address == "" {
				return nil, nil, errors.New("either symbol or address is required")
			}
			q := sentio.PriceQuery{Symbol: in.Symbol, Chain: in.Chain, Address: in.Address}
			if in.Timestamp != "" {
				ts, err := time.Parse(time.RFC3339, in.Timestamp)
				if err != nil {
					return nil, nil, fmt.Errorf("invalid timestamp %q: %w", in.Timestamp, err)
				}
				q.Timestamp = ts
			}
			return rawResult(t.api.Price(ctx, q))
		})

	mcp.AddTool(server, &mcp.Tool{Name: "priceListCoins", Description: "List all available coins"},
		func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
			return rawResult(t.api.ListCoins(ctx))
		})
}
