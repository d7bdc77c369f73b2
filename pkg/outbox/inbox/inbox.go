package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/crud-services/pkg/db"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Inbox records processed event ids per consumer in the processed_events
// table so a redelivered message runs its action at most once.
type Inbox struct {
	db       db.TxBeginner
	consumer string
	logger   *zap.Logger
	retries  int
	backoff  time.Duration
}

func New(pool db.TxBeginner, consumer string, logger *zap.Logger) *Inbox {
	return &Inbox{
		db:       pool,
		consumer: consumer,
		logger:   logger,
		retries:  3,
		backoff:  500 * time.Millisecond,
	}
}

// Process runs action unless eventID was already recorded for this consumer.
// The id is recorded in the same transaction, which only commits once action
// succeeds, so a failed action is retried on the next delivery.
func (i *Inbox) Process(ctx context.Context, eventID int64, action func(ctx context.Context) error) error {
	if eventID == 0 {
		return i.runWithRetry(ctx, action)
	}

	span := trace.SpanFromContext(ctx)

	return db.WithTx(ctx, i.db, i.logger, func(tx pgx.Tx) error {
		query := `
			INSERT INTO processed_events (consumer, event_id)
			VALUES ($1, $2)
			ON CONFLICT (consumer, event_id) DO NOTHING
		`

		tag, err := tx.Exec(ctx, query, i.consumer, eventID)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("error recording processed event: %w", err)
		}

		if tag.RowsAffected() == 0 {
			mylogger.Info(
				ctx,
				i.logger,
				"Event already processed, skipping",
				zap.String("consumer", i.consumer),
				zap.Int64("event_id", eventID),
			)

			return nil
		}

		return i.runWithRetry(ctx, action)
	})
}

func (i *Inbox) runWithRetry(ctx context.Context, action func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < i.retries; attempt++ {
		if err = action(ctx); err == nil {
			return nil
		}

		if attempt < i.retries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(i.backoff):
			}
		}
	}

	mylogger.Error(ctx, i.logger, "Action failed after retries", zap.Error(err))

	return fmt.Errorf("action failed after %d attempts: %w", i.retries, err)
}
