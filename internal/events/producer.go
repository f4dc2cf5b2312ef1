package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer forwards store changes and fulfillment failures to Kafka.
type KafkaProducer struct {
	writer       messageWriter
	changeTopic  string
	failureTopic string
	timeout      time.Duration
	logger       *zap.Logger
}

func NewKafkaProducer(brokers []string, changeTopic, failureTopic string, logger *zap.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaProducer(writer, changeTopic, failureTopic, logger)
}

func newKafkaProducer(w messageWriter, changeTopic, failureTopic string, logger *zap.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer:       w,
		changeTopic:  changeTopic,
		failureTopic: failureTopic,
		timeout:      10 * time.Second,
		logger:       logger,
	}
}

// Run relays every change published on the hub until ctx is cancelled.
func (p *KafkaProducer) Run(ctx context.Context, hub *Hub) {
	sub := hub.Subscribe()
	defer sub.Close()

	p.logger.Info("Change relay started", zap.String("topic", p.changeTopic))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Change relay stopped")
			return
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			if err := p.PublishChange(ctx, event); err != nil {
				p.logger.Error("Failed to relay change event",
					zap.String("collection", string(event.Collection)),
					zap.String("key", event.Key),
					zap.Error(err))
			}
		}
	}
}

func (p *KafkaProducer) PublishChange(ctx context.Context, event ChangeEvent) error {
	// key by document so changes to one document stay ordered on a partition
	key := string(event.Collection) + "/" + event.Key
	return p.write(ctx, p.changeTopic, key, event)
}

func (p *KafkaProducer) PublishFulfillmentFailed(ctx context.Context, orderID, requestID, reason string) error {
	event := FulfillmentFailedEvent{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		Reason:    reason,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
	if err := p.write(ctx, p.failureTopic, orderID, event); err != nil {
		return err
	}

	p.logger.Info("Fulfillment failure published",
		zap.String("event_id", event.EventID),
		zap.String("order_id", orderID),
		zap.String("reason", reason))
	return nil
}

func (p *KafkaProducer) write(ctx context.Context, topic, key string, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
