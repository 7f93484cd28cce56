package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func useTraceContext(t *testing.T) {
	t.Helper()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
}

func TestHeaderCarrier_SetOverwritesCaseInsensitively(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "Traceparent", Value: []byte("old")}}}
	c := headerCarrier{headers: &msg.Headers}

	c.Set("traceparent", "new")
	c.Set("baggage", "k=v")

	assert.Equal(t, "new", c.Get("TRACEPARENT"))
	assert.Equal(t, "k=v", c.Get("baggage"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"Traceparent", "baggage"}, c.Keys())
	assert.Len(t, msg.Headers, 2)
}

func TestStampHeaders_RoundTripsTraceContext(t *testing.T) {
	useTraceContext(t)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var msg kafka.Message
	stampHeaders(ctx, &msg)

	c := headerCarrier{headers: &msg.Headers}
	assert.Equal(t, "application/json", c.Get(HeaderContentType))

	got := trace.SpanContextFromContext(traceContext(context.Background(), &msg))
	assert.Equal(t, traceID, got.TraceID())
	assert.Equal(t, spanID, got.SpanID())
	assert.True(t, got.IsRemote())
}

func TestTraceContext_WithoutHeaders(t *testing.T) {
	useTraceContext(t)

	got := trace.SpanContextFromContext(traceContext(context.Background(), &kafka.Message{}))
	assert.False(t, got.IsValid())
}
