package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sakashimaa/crud-services/pkg/domain"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// EventHandler receives a decoded outbox envelope.
type EventHandler func(ctx context.Context, event domain.EventEnvelope) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as one redelivery cannot fix. The message is committed
// and skipped instead of being consumed again.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// DecodeEnvelope adapts an EventHandler to raw messages. A value that is not
// an envelope is a permanent failure.
func DecodeEnvelope(next EventHandler) HandlerFunc {
	return func(ctx context.Context, msg *sarama.ConsumerMessage) error {
		var envelope domain.EventEnvelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			return Permanent(fmt.Errorf("error decoding envelope: %w", err))
		}

		return next(ctx, envelope)
	}
}

type ConsumerGroup struct {
	brokers      []string
	groupID      string
	topics       []string
	handlerFunc  HandlerFunc
	logger       *zap.Logger
	retryBackoff time.Duration
}

func NewConsumerGroup(
	brokers []string,
	groupID string,
	topics []string,
	handlerFunc HandlerFunc,
	logger *zap.Logger,
) *ConsumerGroup {
	return &ConsumerGroup{
		brokers:      brokers,
		groupID:      groupID,
		topics:       topics,
		handlerFunc:  handlerFunc,
		logger:       logger,
		retryBackoff: time.Second,
	}
}

// Run consumes until ctx is cancelled. It only returns early when the group
// cannot be created.
func (c *ConsumerGroup) Run(ctx context.Context) error {
	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	group, err := sarama.NewConsumerGroup(c.brokers, c.groupID, config)
	if err != nil {
		return fmt.Errorf("error creating consumer group %s: %w", c.groupID, err)
	}

	defer func() {
		if err := group.Close(); err != nil {
			mylogger.Error(ctx, c.logger, "Error closing consumer group", zap.Error(err))
		}
	}()

	go func() {
		for err := range group.Errors() {
			mylogger.Warn(
				ctx,
				c.logger,
				"Consumer group session ended with error",
				zap.String("group_id", c.groupID),
				zap.Error(err),
			)
		}
	}()

	handler := &claimHandler{
		handle: c.handlerFunc,
		logger: c.logger,
	}

	for {
		if err := group.Consume(ctx, c.topics, handler); err != nil {
			mylogger.Error(ctx, c.logger, "Error consuming in consumer loop", zap.Error(err))
		}

		if ctx.Err() != nil {
			mylogger.Info(ctx, c.logger, "Context cancelled, shutting down consumer", zap.String("group_id", c.groupID))
			return nil
		}

		// A session also ends when a handler fails; pause before rejoining so
		// the redelivered message is not hammered.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.retryBackoff):
		}
	}
}

type claimHandler struct {
	handle HandlerFunc
	logger *zap.Logger
}

func (h *claimHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks each handled message. On a transient failure it stops
// without marking, which ends the session; after the rebalance the group
// resumes from the last committed offset and the message is delivered again.
func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.process(session.Context(), msg); err != nil && !IsPermanent(err) {
			return fmt.Errorf("message %s/%d/%d left for redelivery: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}

		session.MarkMessage(msg, "")
	}

	return nil
}

func (h *claimHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx, span := extractTracing(ctx, msg)
	defer span.End()

	err := h.handle(ctx, msg)
	if err == nil {
		return nil
	}

	span.RecordError(err)

	fields := []zap.Field{
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.Error(err),
	}
	if IsPermanent(err) {
		mylogger.Warn(ctx, h.logger, "Skipping message that cannot be processed", fields...)
	} else {
		mylogger.Error(ctx, h.logger, "Failed to process message", fields...)
	}

	return err
}

func extractTracing(ctx context.Context, msg *sarama.ConsumerMessage) (context.Context, trace.Span) {
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		if header == nil {
			continue
		}
		carrier[string(header.Key)] = string(header.Value)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	return otel.Tracer("pkg/kafka/consumer").Start(ctx, "kafka_process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.partition", int64(msg.Partition)),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
}
