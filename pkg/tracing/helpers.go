package tracing

import (
	"context"
	"fmt"

	"go.opencensus.io/trace"
)

// StartServiceSpan creates a span named Service.Method.
func StartServiceSpan(ctx context.Context, serviceName, methodName string) (context.Context, *trace.Span) {
	return trace.StartSpan(ctx, serviceName+"."+methodName)
}

// AddAttribute attaches a key/value pair to the current span, if any.
func AddAttribute(ctx context.Context, key string, value interface{}) {
	span := trace.FromContext(ctx)
	if span == nil {
		return
	}
	switch v := value.(type) {
	case string:
		span.AddAttributes(trace.StringAttribute(key, v))
	case int:
		span.AddAttributes(trace.Int64Attribute(key, int64(v)))
	case int64:
		span.AddAttributes(trace.Int64Attribute(key, v))
	case bool:
		span.AddAttributes(trace.BoolAttribute(key, v))
	default:
		span.AddAttributes(trace.StringAttribute(key, fmt.Sprintf("%v", v)))
	}
}

// MarkSpanError records err on the current span, if any.
func MarkSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.FromContext(ctx)
	if span == nil {
		return
	}
	span.SetStatus(trace.Status{
		Code:    trace.StatusCodeUnknown,
		Message: err.Error(),
	})
}
