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
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
	"github.com/sakashimaa/crud-services/services/product/internal/service"
	"go.uber.org/zap"
)

type Processor interface {
	Process(ctx context.Context, eventID int64, action func(ctx context.Context) error) error
}

// Consumer keeps the product cache consistent across replicas.
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
		[]string{service.ProductTopic},
		c.processMessage,
		c.logger,
	)

	return consumerGroup.Run(ctx)
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
	case domain.EventProductUpdated, domain.EventProductDeleted:
		var ref struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(envelope.Payload, &ref); err != nil {
			return kafka.Permanent(fmt.Errorf("error decoding %s payload: %w", envelope.Event, err))
		}

		return c.inbox.Process(ctx, envelope.EventID, func(ctx context.Context) error {
			return service.EvictProduct(ctx, c.cache, ref.ID)
		})
	case domain.EventProductCreated, domain.EventSellerCreated:
	default:
		mylogger.Warn(ctx, c.logger, "Ignored event type", zap.String("event_type", envelope.Event))
	}

	return nil
}
