package domain

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	eventDomain "github.com/sakashimaa/crud-services/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const MaxAttempts = 10

type OutboxEvent struct {
	ID            int64           `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	Headers       json.RawMessage `db:"headers"`
	CreatedAt     time.Time       `db:"created_at"`
	PublishedAt   *time.Time      `db:"published_at"`
	Attempts      int64           `db:"attempts"`
	LastError     *string         `db:"last_error"`
	Topic         string          `db:"topic"`
}

// NewOutboxEvent wraps payload in an event envelope and captures the trace
// context of ctx so the published message continues the request's trace.
func NewOutboxEvent(
	ctx context.Context,
	topic, aggregateType string,
	aggregateID int64,
	eventType string,
	payload any,
) (*OutboxEvent, error) {
	body, err := eventDomain.NewEnvelope(eventType, payload)
	if err != nil {
		return nil, err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers, err := json.Marshal(carrier)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		Topic:         topic,
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		EventType:     eventType,
		Payload:       body,
		Headers:       headers,
	}, nil
}

// TraceContext restores the trace context captured when the event was saved.
func (e *OutboxEvent) TraceContext(ctx context.Context) context.Context {
	if len(e.Headers) == 0 {
		return ctx
	}

	carrier := propagation.MapCarrier{}
	if err := json.Unmarshal(e.Headers, &carrier); err != nil {
		return ctx
	}

	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
