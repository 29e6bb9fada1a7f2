package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/trace"
)

func TestInit(t *testing.T) {
	t.Run("disabled never samples", func(t *testing.T) {
		Init(Config{Enabled: false})

		_, span := trace.StartSpan(context.Background(), "test.Span")
		defer span.End()
		assert.False(t, span.SpanContext().IsSampled())
	})

	t.Run("enabled samples at probability one", func(t *testing.T) {
		Init(Config{Enabled: true, ServiceName: "test", SamplingProbability: 1.0})

		_, span := trace.StartSpan(context.Background(), "test.Span")
		defer span.End()
		assert.True(t, span.SpanContext().IsSampled())
	})
}

func TestStartServiceSpan(t *testing.T) {
	Init(Config{Enabled: true, SamplingProbability: 1.0})

	ctx, span := StartServiceSpan(context.Background(), "SendService", "Send")
	defer span.End()

	require.NotNil(t, span)
	assert.Equal(t, span, trace.FromContext(ctx))
}

func TestAddAttribute(t *testing.T) {
	Init(Config{Enabled: true, SamplingProbability: 1.0})

	ctx, span := StartServiceSpan(context.Background(), "SendService", "Send")
	defer span.End()

	// No panics across the supported attribute types, with and without a
	// span on the context.
	AddAttribute(ctx, "recipients", 3)
	AddAttribute(ctx, "job_id", "job1")
	AddAttribute(ctx, "terminal", true)
	AddAttribute(ctx, "count64", int64(7))
	AddAttribute(ctx, "other", 1.5)
	AddAttribute(context.Background(), "no_span", "ignored")
}

func TestMarkSpanError(t *testing.T) {
	Init(Config{Enabled: true, SamplingProbability: 1.0})

	ctx, span := StartServiceSpan(context.Background(), "SendService", "Send")
	defer span.End()

	MarkSpanError(ctx, errors.New("relay unreachable"))
	MarkSpanError(ctx, nil)
	MarkSpanError(context.Background(), errors.New("no span"))
}
