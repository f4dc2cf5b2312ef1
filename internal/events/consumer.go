package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Fulfiller runs the order fulfillment workflow.
type Fulfiller interface {
	Fulfill(ctx context.Context, orderID string) (*domain.FulfillmentResult, error)
}

// FailurePublisher reports fulfillment requests that could not be honoured.
type FailurePublisher interface {
	PublishFulfillmentFailed(ctx context.Context, orderID, requestID, reason string) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer turns fulfillment requests from a topic into Fulfill calls.
type KafkaConsumer struct {
	reader    messageReader
	fulfiller Fulfiller
	failures  FailurePublisher
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	started   bool
}

func NewKafkaConsumer(brokers []string, topic, groupID string, fulfiller Fulfiller, logger *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // commit explicitly after processing
	})
	return newKafkaConsumer(reader, fulfiller, logger)
}

func newKafkaConsumer(r messageReader, fulfiller Fulfiller, logger *zap.Logger) *KafkaConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaConsumer{
		reader:    r,
		fulfiller: fulfiller,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// SetFailurePublisher wires the publisher used for rejected requests.
func (kc *KafkaConsumer) SetFailurePublisher(p FailurePublisher) {
	kc.failures = p
}

func (kc *KafkaConsumer) Start() {
	kc.started = true
	kc.logger.Info("Kafka consumer started")
	go kc.consume()
}

func (kc *KafkaConsumer) consume() {
	defer close(kc.done)
	defer kc.reader.Close()

	for {
		msg, err := kc.reader.FetchMessage(kc.ctx)
		if err != nil {
			if kc.ctx.Err() != nil {
				kc.logger.Info("Kafka consumer stopped")
				return
			}
			kc.logger.Error("Error reading message", zap.Error(err))
			continue
		}

		kc.processMessage(kc.ctx, msg)

		if err := kc.reader.CommitMessages(kc.ctx, msg); err != nil {
			kc.logger.Error("Error committing message", zap.Error(err))
		}
	}
}

// processMessage handles one request. Every outcome, including store
// failures, ends with the message committed; failures are reported through
// the failure publisher and are not retried.
func (kc *KafkaConsumer) processMessage(ctx context.Context, msg kafka.Message) {
	var event FulfillmentRequestedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		kc.logger.Error("Discarding malformed fulfillment request",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return
	}

	kc.logger.Info("Processing fulfillment request",
		zap.String("order_id", event.OrderID),
		zap.String("request_id", event.RequestID))

	result, err := kc.fulfiller.Fulfill(ctx, event.OrderID)
	if err == nil {
		kc.logger.Info("Order fulfilled from request",
			zap.String("order_id", event.OrderID),
			zap.Int("decremented", len(result.Decremented)),
			zap.Int("skipped", len(result.Skipped)))
		return
	}

	reason := failureReason(err)
	if reason == reasonStoreError {
		kc.logger.Error("Error fulfilling order from request",
			zap.String("order_id", event.OrderID),
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
	} else {
		kc.logger.Warn("Fulfillment request rejected",
			zap.String("order_id", event.OrderID),
			zap.String("reason", reason),
			zap.Error(err))
	}

	if kc.failures != nil {
		if pubErr := kc.failures.PublishFulfillmentFailed(ctx, event.OrderID, event.RequestID, reason); pubErr != nil {
			kc.logger.Error("Failed to publish fulfillment failure", zap.Error(pubErr))
		}
	}
}

const reasonStoreError = "store_error"

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "stock_insufficient"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, domain.ErrOrderAlreadyFulfilled):
		return "order_already_fulfilled"
	default:
		return reasonStoreError
	}
}

// Stop cancels consumption and waits for the loop to exit.
func (kc *KafkaConsumer) Stop() {
	kc.logger.Info("Stopping Kafka consumer")
	kc.cancel()
	if kc.started {
		<-kc.done
	}
}
