package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Topics published by the entitlement service.
const (
	TopicPaymentSettled     = "payment_settled"
	TopicEntitlementChanged = "entitlement_changed"
)

// Producer publishes domain events. The account id is used as the
// message key so events for one account stay ordered within a
// partition.
type Producer interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

// kafkaProducer implements Producer using segmentio/kafka-go.
type kafkaProducer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewKafkaProducer creates and configures a Kafka producer.
func NewKafkaProducer(brokers []string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer configured", "brokers", brokers)
	return &kafkaProducer{writer: writer, log: log}, nil
}

// PublishEvent marshals the event to JSON and writes it to the topic.
func (p *kafkaProducer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Errorw("Failed to publish Kafka event", "error", err, "topic", topic, "key", key)
		return fmt.Errorf("kafka: failed to publish event: %w", err)
	}

	p.log.Debugw("Kafka event published", "topic", topic, "key", key)
	return nil
}

// Close closes the Kafka writer.
func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// NoOpProducer satisfies Producer when Kafka is not configured; event
// publishing is not critical to the purchase flow.
type NoOpProducer struct{}

func (NoOpProducer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	return nil
}

func (NoOpProducer) Close() error { return nil }
