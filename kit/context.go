// Package kit provides the small cross-cutting plumbing shared by the natal
// services: endpoint middleware, request-scoped context values, and the MCP
// tool adapter.
package kit

import "context"

type contextKey string

const (
	// TraceIDKey carries the per-request trace identifier.
	TraceIDKey contextKey = "kit_trace_id"
	// ClientKey carries the rate-limit client identifier ("unknown" when no
	// forwarded-IP header was present).
	ClientKey contextKey = "kit_client"
)

// Endpoint is a transport-agnostic operation: the same function serves HTTP
// handlers and MCP tools.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middleware left to right: the first wraps outermost.
func Chain(mw ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

func WithClient(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ClientKey, id)
}

func GetClient(ctx context.Context) string {
	v, _ := ctx.Value(ClientKey).(string)
	return v
}
