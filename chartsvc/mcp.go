package chartsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/natal/canon"
	"github.com/hazyhaar/natal/chart"
	"github.com/hazyhaar/natal/kit"
)

// RegisterMCP registers the chart tools on an MCP server.
func (h *Handler) RegisterMCP(srv *mcp.Server) {
	h.registerComputeTool(srv)
	h.registerBigThreeTool(srv)
}

// toolLogging logs every tool invocation with its outcome and duration.
func (h *Handler) toolLogging(tool string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				h.logger.Warn("chartsvc: tool failed", "tool", tool, "took", time.Since(start), "error", err)
				return nil, err
			}
			h.logger.Debug("chartsvc: tool served", "tool", tool, "took", time.Since(start))
			return resp, nil
		}
	}
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func chartRequestSchema() map[string]any {
	return inputSchema(map[string]any{
		"datetimeUtc": map[string]any{"type": "string", "description": "Birth moment in UTC, YYYY-MM-DDTHH:mm:ssZ"},
		"lat":         map[string]any{"type": "number", "description": "Latitude in decimal degrees"},
		"lon":         map[string]any{"type": "number", "description": "Longitude in decimal degrees"},
		"zodiac":      map[string]any{"type": "string", "enum": []string{"tropical"}},
		"houseSystem": map[string]any{"type": "string", "enum": []string{"placidus", "wholeSign"}},
	}, []string{"datetimeUtc", "lat", "lon", "zodiac", "houseSystem"})
}

func (h *Handler) buildFromRequest(ctx context.Context, r *Request) (*chart.Chart, error) {
	orbs := h.orbs
	if r.Aspects != nil {
		orbs = *r.Aspects
	}
	return h.builder.Build(ctx, chart.Input{
		DatetimeUTC: r.DatetimeUTC,
		Lat:         r.Lat,
		Lon:         r.Lon,
		Zodiac:      r.Zodiac,
		HouseSystem: r.HouseSystem,
		Tolerances:  orbs,
	})
}

func (h *Handler) decodeChartRequest(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r Request
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(&r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

func (h *Handler) registerComputeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "natal_compute_chart",
		Description: "Compute a natal chart (points, houses, aspects) for a UTC birth moment and location.",
		InputSchema: chartRequestSchema(),
	}

	endpoint := kit.Chain(h.toolLogging(tool.Name))(func(ctx context.Context, req any) (any, error) {
		return h.buildFromRequest(ctx, req.(*Request))
	})

	kit.RegisterMCPTool(srv, tool, endpoint, h.decodeChartRequest)
}

func (h *Handler) registerBigThreeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "natal_big_three",
		Description: "Compute the sun, moon, and rising signs for a UTC birth moment and location.",
		InputSchema: chartRequestSchema(),
	}

	endpoint := kit.Chain(h.toolLogging(tool.Name))(func(ctx context.Context, req any) (any, error) {
		c, err := h.buildFromRequest(ctx, req.(*Request))
		if err != nil {
			return nil, err
		}
		return canon.DeriveBigThree(c, false)
	})

	kit.RegisterMCPTool(srv, tool, endpoint, h.decodeChartRequest)
}
