package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sakashimaa/crud-services/pkg/cache"
	eventDomain "github.com/sakashimaa/crud-services/pkg/domain"
	"github.com/sakashimaa/crud-services/pkg/kafka"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
	"github.com/sakashimaa/crud-services/services/todo/internal/service"
	"go.uber.org/zap"
)

// Processor guards a side effect so it runs once per event id.
type Processor interface {
	Process(ctx context.Context, eventID int64, action func(ctx context.Context) error) error
}

// Consumer evicts cached todos when another replica changes them.
type Consumer struct {
	cache  *cache.Cache
	inbox  Processor
	logger *zap.Logger
}

func NewConsumer(c *cache.Cache, inbox Processor, logger *zap.Logger) *Consumer {
	return &Consumer{
		cache:  c,
		inbox:  inbox,
		logger: logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, groupID string) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{service.TodoTopic},
		c.processMessage,
		c.logger,
	)

	return consumerGroup.Run(ctx)
}

type todoRef struct {
	ID int64 `json:"id"`
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Debug(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
		zap.Int64("offset", msg.Offset),
	)

	return kafka.DecodeEnvelope(c.handleEvent)(ctx, msg)
}

func (c *Consumer) handleEvent(ctx context.Context, envelope eventDomain.EventEnvelope) error {
	switch envelope.Event {
	case domain.EventTodoUpdated, domain.EventTodoDeleted:
		var ref todoRef
		if err := json.Unmarshal(envelope.Payload, &ref); err != nil {
			return kafka.Permanent(fmt.Errorf("error decoding %s payload: %w", envelope.Event, err))
		}

		return c.inbox.Process(ctx, envelope.EventID, func(ctx context.Context) error {
			return service.EvictTodo(ctx, c.cache, ref.ID)
		})
	case domain.EventTodoCreated:
		// Nothing is cached before the first read.
	default:
		mylogger.Warn(ctx, c.logger, "Ignored event type", zap.String("event_type", envelope.Event))
	}

	return nil
}
