// Package ctxutil carries per-request identity and correlation ids through context.
package ctxutil

import "context"

type (
	requestDataKey struct{}
	traceDataKey   struct{}
)

// RequestData is the resolved caller identity for one request.
type RequestData struct {
	UserID      string
	TokenString string
	// Anonymous is set when no credential was presented and the fixed default identity applies.
	Anonymous bool
}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey{}).(*RequestData)
	return rd
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

// LogFields returns trace_id and request_id key/value pairs for whichever of them ctx carries.
func LogFields(ctx context.Context) []any {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var out []any
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	return out
}
