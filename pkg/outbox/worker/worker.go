package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/crud-services/pkg/db"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error
	MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, error string) error
	PurgePublished(ctx context.Context, tx pgx.Tx, olderThan time.Time) (int64, error)
	PurgeProcessed(ctx context.Context, tx pgx.Tx, olderThan time.Time) (int64, error)
}

type KafkaProducer interface {
	ProduceMessage(ctx context.Context, topic string, key string, message interface{}) error
}

type OutboxProcessor struct {
	pool          db.TxBeginner
	repo          OutboxRepository
	kafkaProducer KafkaProducer
	logger        *zap.Logger
	batchSize     int
	interval      time.Duration
	retention     time.Duration
	purgeEvery    time.Duration
	now           func() time.Time
	tracer        trace.Tracer
}

type Option func(*OutboxProcessor)

func WithBatchSize(size int) Option {
	return func(p *OutboxProcessor) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(p *OutboxProcessor) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithRetention keeps published rows for d before they are purged. Zero keeps
// them forever.
func WithRetention(d time.Duration) Option {
	return func(p *OutboxProcessor) {
		if d >= 0 {
			p.retention = d
		}
	}
}

func NewOutboxProcessor(
	pool db.TxBeginner,
	repo OutboxRepository,
	producer KafkaProducer,
	logger *zap.Logger,
	opts ...Option,
) *OutboxProcessor {
	p := &OutboxProcessor{
		pool:          pool,
		repo:          repo,
		kafkaProducer: producer,
		logger:        logger,
		batchSize:     50,
		interval:      500 * time.Millisecond,
		purgeEvery:    time.Minute,
		now:           time.Now,
		tracer:        otel.Tracer("outbox-worker"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	mylogger.Info(
		ctx,
		p.logger,
		"Starting outbox processor",
		zap.Int("batch_size", p.batchSize),
		zap.Duration("interval", p.interval),
		zap.Duration("retention", p.retention),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var purge <-chan time.Time
	if p.retention > 0 {
		purgeTicker := time.NewTicker(p.purgeEvery)
		defer purgeTicker.Stop()
		purge = purgeTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(
				ctx,
				p.logger,
				"Outbox processor stopping",
			)

			return
		case <-ticker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"Error processing outbox batch",
					zap.Error(err),
				)
			}
		case <-purge:
			if err := p.Purge(ctx); err != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"Error purging published outbox events",
					zap.Error(err),
				)
			}
		}
	}
}

// Purge removes events published, and inbox entries recorded, longer ago than
// the retention period.
func (p *OutboxProcessor) Purge(ctx context.Context) error {
	if p.retention <= 0 {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.Purge")
	defer span.End()

	cutoff := p.now().Add(-p.retention)

	return db.WithTx(ctx, p.pool, p.logger, func(tx pgx.Tx) error {
		published, err := p.repo.PurgePublished(ctx, tx, cutoff)
		if err != nil {
			return err
		}

		processed, err := p.repo.PurgeProcessed(ctx, tx, cutoff)
		if err != nil {
			return err
		}

		if published > 0 || processed > 0 {
			mylogger.Debug(
				ctx,
				p.logger,
				"Purged outbox and inbox rows",
				zap.Int64("published_events", published),
				zap.Int64("processed_events", processed),
			)
		}

		return nil
	})
}

// ProcessBatch publishes one batch of pending events. Rows are locked with
// SKIP LOCKED, so several replicas can run processors against one table.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.ProcessBatch")
	defer span.End()

	return db.WithTx(ctx, p.pool, p.logger, func(tx pgx.Tx) error {
		events, err := p.repo.GetUnpublishedEvents(ctx, tx, p.batchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		mylogger.Debug(
			ctx,
			p.logger,
			"Processing outbox events",
			zap.Int("count", len(events)),
		)

		// Once an event fails, later events of the same aggregate wait for
		// the next batch so they are never published ahead of it.
		held := make(map[string]bool)
		for _, event := range events {
			key := aggregateKey(event)
			if held[key] {
				mylogger.Debug(
					ctx,
					p.logger,
					"outbox worker holding back event behind failed one",
					zap.Int64("id", event.ID),
					zap.String("aggregate", key),
				)

				continue
			}

			published, err := p.publish(ctx, tx, event)
			if err != nil {
				return err
			}
			if !published {
				held[key] = true
			}
		}

		return nil
	})
}

func aggregateKey(event *domain.OutboxEvent) string {
	return event.Topic + "/" + event.AggregateType + "/" + event.AggregateID
}

// publish reports false when the event was marked failed instead of sent.
func (p *OutboxProcessor) publish(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) (bool, error) {
	var payloadMap map[string]any
	if err := json.Unmarshal(event.Payload, &payloadMap); err != nil {
		mylogger.Error(
			ctx,
			p.logger,
			"outbox worker unmarshal event payload failed",
			zap.Int64("id", event.ID),
			zap.Error(err),
		)

		return false, p.markFailed(ctx, tx, event, err)
	}

	payloadMap["event_id"] = event.ID

	produceCtx := event.TraceContext(ctx)
	if err := p.kafkaProducer.ProduceMessage(produceCtx, event.Topic, event.AggregateID, payloadMap); err != nil {
		mylogger.Error(
			ctx,
			p.logger,
			"outbox worker produce message failed",
			zap.Int64("id", event.ID),
			zap.String("topic", event.Topic),
			zap.Error(err),
		)

		return false, p.markFailed(ctx, tx, event, err)
	}

	if err := p.repo.MarkEventPublished(ctx, tx, event.ID); err != nil {
		mylogger.Error(
			ctx,
			p.logger,
			"outbox worker mark event published failed",
			zap.Int64("id", event.ID),
			zap.Error(err),
		)

		return false, fmt.Errorf("error marking event %d published: %w", event.ID, err)
	}

	mylogger.Debug(
		ctx,
		p.logger,
		"outbox worker event published successfully",
		zap.Int64("id", event.ID),
		zap.String("event_type", event.EventType),
	)

	return true, nil
}

func (p *OutboxProcessor) markFailed(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent, cause error) error {
	if err := p.repo.MarkEventFailed(ctx, tx, event.ID, cause.Error()); err != nil {
		mylogger.Error(
			ctx,
			p.logger,
			"outbox worker mark event failed failed",
			zap.Int64("id", event.ID),
			zap.Error(err),
		)

		return fmt.Errorf("error marking event %d failed: %w", event.ID, err)
	}

	return nil
}
