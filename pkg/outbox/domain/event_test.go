package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestNewOutboxEvent(t *testing.T) {
	event, err := NewOutboxEvent(
		context.Background(),
		"todo_events",
		"Todo",
		12,
		"TodoCreated",
		map[string]any{"todo_id": 12},
	)
	require.NoError(t, err)

	require.Equal(t, "todo_events", event.Topic)
	require.Equal(t, "Todo", event.AggregateType)
	require.Equal(t, "12", event.AggregateID)
	require.Equal(t, "TodoCreated", event.EventType)
	require.JSONEq(t, `{"event":"TodoCreated","payload":{"todo_id":12}}`, string(event.Payload))
}

func TestOutboxEvent_TraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "create todo")
	defer span.End()

	event, err := NewOutboxEvent(ctx, "todo_events", "Todo", 1, "TodoCreated", map[string]any{})
	require.NoError(t, err)

	var headers map[string]string
	require.NoError(t, json.Unmarshal(event.Headers, &headers))
	require.Contains(t, headers, "traceparent")

	restored := trace.SpanContextFromContext(event.TraceContext(context.Background()))
	require.Equal(t, span.SpanContext().TraceID(), restored.TraceID())
}

func TestOutboxEvent_TraceContextWithoutHeaders(t *testing.T) {
	event := &OutboxEvent{}
	ctx := context.Background()

	require.Equal(t, ctx, event.TraceContext(ctx))
}
