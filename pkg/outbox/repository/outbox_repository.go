package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/crud-services/pkg/outbox/domain"
	"github.com/sakashimaa/crud-services/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	insertEventQuery = `
		INSERT INTO outbox (aggregate_type, aggregate_id, event_type, payload, headers, topic)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	// Oldest first; the worker holds back later events of an aggregate whose
	// earlier event failed, so per-aggregate order survives retries.
	pendingEventsQuery = `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, headers, created_at, attempts, topic
		FROM outbox
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	markPublishedQuery = `
		UPDATE outbox
		SET published_at = NOW(), last_error = NULL
		WHERE id = $1
	`

	markFailedQuery = `
		UPDATE outbox
		SET last_error = $2, attempts = attempts + 1
		WHERE id = $1
	`

	purgePublishedQuery = `
		DELETE FROM outbox
		WHERE published_at IS NOT NULL AND published_at < $1
	`

	purgeProcessedQuery = `
		DELETE FROM processed_events
		WHERE processed_at < $1
	`
)

type outboxRepo struct {
	tracer trace.Tracer
	logger *zap.Logger
}

// NewOutboxRepository returns a repository that only ever runs inside the
// caller's transaction, so events commit or roll back with the row change.
func NewOutboxRepository(logger *zap.Logger) worker.OutboxRepository {
	return &outboxRepo{
		tracer: otel.Tracer("repository/outbox_repo"),
		logger: logger,
	}
}

func (r *outboxRepo) SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.SaveOutboxEvent", trace.WithAttributes(
		attribute.String("outbox.topic", event.Topic),
		attribute.String("outbox.event_type", event.EventType),
		attribute.String("outbox.aggregate", event.AggregateType+"/"+event.AggregateID),
	))
	defer span.End()

	err := tx.QueryRow(
		ctx,
		insertEventQuery,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		event.Payload,
		event.Headers,
		event.Topic,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error saving %s outbox event: %w", event.EventType, err)
	}

	return nil
}

func (r *outboxRepo) GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*domain.OutboxEvent, error) {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.GetUnpublishedEvents", trace.WithAttributes(
		attribute.Int("outbox.batch_size", batchSize),
	))
	defer span.End()

	rows, err := tx.Query(ctx, pendingEventsQuery, batchSize, domain.MaxAttempts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.OutboxEvent, error) {
		e := &domain.OutboxEvent{}
		err := row.Scan(
			&e.ID,
			&e.AggregateType,
			&e.AggregateID,
			&e.EventType,
			&e.Payload,
			&e.Headers,
			&e.CreatedAt,
			&e.Attempts,
			&e.Topic,
		)
		return e, err
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error scanning outbox events: %w", err)
	}

	span.SetAttributes(attribute.Int("outbox.result_count", len(events)))

	return events, nil
}

func (r *outboxRepo) MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	return r.exec(ctx, tx, "OutboxRepository.MarkEventPublished", eventID, markPublishedQuery, eventID)
}

// MarkEventFailed bumps the attempt counter. Rows reaching domain.MaxAttempts
// are no longer picked up and stay in the table for inspection.
func (r *outboxRepo) MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error {
	return r.exec(ctx, tx, "OutboxRepository.MarkEventFailed", eventID, markFailedQuery, eventID, errMsg)
}

// PurgePublished deletes outbox rows published before olderThan.
func (r *outboxRepo) PurgePublished(ctx context.Context, tx pgx.Tx, olderThan time.Time) (int64, error) {
	return r.purge(ctx, tx, "OutboxRepository.PurgePublished", purgePublishedQuery, olderThan)
}

// PurgeProcessed deletes inbox rows recorded before olderThan.
func (r *outboxRepo) PurgeProcessed(ctx context.Context, tx pgx.Tx, olderThan time.Time) (int64, error) {
	return r.purge(ctx, tx, "OutboxRepository.PurgeProcessed", purgeProcessedQuery, olderThan)
}

func (r *outboxRepo) purge(ctx context.Context, tx pgx.Tx, spanName, query string, olderThan time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, spanName)
	defer span.End()

	tag, err := tx.Exec(ctx, query, olderThan)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error purging rows older than %s: %w", olderThan.Format(time.RFC3339), err)
	}

	span.SetAttributes(attribute.Int64("outbox.purged", tag.RowsAffected()))

	return tag.RowsAffected(), nil
}

func (r *outboxRepo) exec(ctx context.Context, tx pgx.Tx, spanName string, eventID int64, query string, args ...any) error {
	ctx, span := r.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.Int64("outbox.event_id", eventID),
	))
	defer span.End()

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error updating outbox event %d: %w", eventID, err)
	}

	return nil
}
