package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pawmed/billing-service/pkg/logger"
)

// Topics carrying billing events for downstream consumers (chat quota
// service, notifications).
const (
	TopicPaymentCompleted      = "billing.payment_completed"
	TopicSubscriptionActivated = "billing.subscription_activated"
	TopicRenewalChanged        = "billing.renewal_changed"
)

// PaymentEvent is the message body published after a successful reconciliation.
type PaymentEvent struct {
	UserID          string    `json:"user_id"`
	TransactionID   string    `json:"transaction_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Kind            string    `json:"kind"`
	Label           string    `json:"label"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	MinutesGranted  int       `json:"minutes_granted"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// RenewalEvent is published when a user flips auto-renewal.
type RenewalEvent struct {
	UserID     string    `json:"user_id"`
	AutoRenew  bool      `json:"auto_renew"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Producer publishes billing events to Kafka.
type Producer interface {
	// PublishPaymentEvent sends a payment event to the given topic.
	// The user id keys the message so one user's events stay ordered.
	PublishPaymentEvent(ctx context.Context, topic string, event *PaymentEvent) error
	// PublishRenewalEvent sends an auto-renewal change event.
	PublishRenewalEvent(ctx context.Context, event *RenewalEvent) error
	// Close closes the underlying writer.
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewKafkaProducer creates a producer over the given brokers.
func NewKafkaProducer(brokers []string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		log.Errorw("Kafka brokers list is empty in config, cannot create producer")
		return nil, errors.New("kafka brokers are not configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer initialized", "brokers", brokers)

	return &kafkaProducer{
		writer: writer,
		log:    log,
	}, nil
}

func (k *kafkaProducer) PublishPaymentEvent(ctx context.Context, topic string, event *PaymentEvent) error {
	return k.publish(ctx, topic, event.UserID, event)
}

func (k *kafkaProducer) PublishRenewalEvent(ctx context.Context, event *RenewalEvent) error {
	return k.publish(ctx, TopicRenewalChanged, event.UserID, event)
}

func (k *kafkaProducer) publish(ctx context.Context, topic, key string, payload any) error {
	messageValue, err := json.Marshal(payload)
	if err != nil {
		k.log.Errorw("Failed to marshal event for Kafka", "error", err, "topic", topic, "key", key)
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: messageValue,
		Time:  time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(writeCtx, message); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			k.log.Errorw("Kafka write timeout exceeded", "error", err, "topic", topic, "key", key)
			return fmt.Errorf("kafka: write timeout: %w", err)
		}
		k.log.Errorw("Failed to write message to Kafka", "error", err, "topic", topic, "key", key)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Debugw("Published message to Kafka", "topic", topic, "key", key)
	return nil
}

func (k *kafkaProducer) Close() error {
	k.log.Infow("Closing Kafka producer writer...")
	if err := k.writer.Close(); err != nil {
		k.log.Errorw("Failed to close Kafka writer", "error", err)
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	return nil
}

// NopProducer discards events. Used when Kafka is not configured and in tests.
type NopProducer struct{}

func (NopProducer) PublishPaymentEvent(context.Context, string, *PaymentEvent) error { return nil }
func (NopProducer) PublishRenewalEvent(context.Context, *RenewalEvent) error         { return nil }
func (NopProducer) Close() error                                                     { return nil }
