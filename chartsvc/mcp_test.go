package chartsvc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/natal/astro"
	"github.com/hazyhaar/natal/canon"
	"github.com/hazyhaar/natal/chart"
)

var testMCPImpl = &mcp.Implementation{Name: "chartd-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	h := newTestHandler(t)
	srv := mcp.NewServer(testMCPImpl, nil)
	h.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %v", name, result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func chartArgs() map[string]any {
	return map[string]any{
		"datetimeUtc": "1990-01-01T12:30:00Z",
		"lat":         40.7128,
		"lon":         -74.006,
		"zodiac":      "tropical",
		"houseSystem": "placidus",
	}
}

func TestMCP_ComputeChart(t *testing.T) {
	session := mcpSession(t)

	text := mcpCallTool(t, session, "natal_compute_chart", chartArgs())

	var c chart.Chart
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		t.Fatalf("unmarshal chart: %v", err)
	}
	if len(c.Points) != len(astro.PointOrder) {
		t.Errorf("points = %d, want %d", len(c.Points), len(astro.PointOrder))
	}
	if err := chart.Validate(&c); err != nil {
		t.Errorf("returned chart does not validate: %v", err)
	}
}

func TestMCP_BigThree(t *testing.T) {
	session := mcpSession(t)

	text := mcpCallTool(t, session, "natal_big_three", chartArgs())

	var bt canon.BigThree
	if err := json.Unmarshal([]byte(text), &bt); err != nil {
		t.Fatalf("unmarshal big three: %v", err)
	}
	// Fake longitudes: sun 0.0 and moon 23.5 are both in Aries; the
	// ascendant 125.25 lands in Leo.
	if bt.Sun != "Aries" || bt.Moon != "Aries" {
		t.Errorf("bigThree = %+v, want Aries sun and moon", bt)
	}
	if bt.Rising == nil || *bt.Rising != "Leo" {
		t.Errorf("rising = %v, want Leo", bt.Rising)
	}
}

func TestMCP_InvalidArguments(t *testing.T) {
	session := mcpSession(t)

	args := chartArgs()
	args["zodiac"] = "sidereal"
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "natal_compute_chart",
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	// GetError always returns nil on clients; IsError carries the flag
	// over the wire.
	if !result.IsError {
		t.Fatal("expected a tool error for an unsupported zodiac")
	}
}
