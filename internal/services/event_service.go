// internal/services/event_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/models"
)

type OrderEventType string

const (
	OrderEventCreated  OrderEventType = "order.created"
	OrderEventPaid     OrderEventType = "order.paid"
	OrderEventCanceled OrderEventType = "order.canceled"
)

type OrderEvent struct {
	Type             OrderEventType     `json:"type"`
	OrderID          uuid.UUID          `json:"order_id"`
	Status           models.OrderStatus `json:"status"`
	TotalPrice       string             `json:"total_price"`
	PaymentProvider  string             `json:"payment_provider"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	OccurredAt       time.Time          `json:"occurred_at"`
}

func NewOrderEvent(eventType OrderEventType, order *models.Order) OrderEvent {
	return OrderEvent{
		Type:             eventType,
		OrderID:          order.ID,
		Status:           order.Status,
		TotalPrice:       order.TotalPrice.StringFixed(2),
		PaymentProvider:  string(order.PaymentProvider),
		PaymentReference: order.PaymentReference,
		OccurredAt:       time.Now().UTC(),
	}
}

// EventPublisher announces order lifecycle changes to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

const kafkaBatchTimeout = 10 * time.Millisecond

type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher writes each event on its own. Publish runs inside
// checkout and payment requests, so it never waits for a batch to fill.
func NewKafkaEventPublisher(cfg config.KafkaConfig) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchSize:              1,
			BatchTimeout:           kafkaBatchTimeout,
		},
	}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	// Keyed by order so one order's events stay on one partition, in order.
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// LogEventPublisher only logs events; used when no brokers are configured.
type LogEventPublisher struct{}

func (LogEventPublisher) Publish(ctx context.Context, event OrderEvent) error {
	logrus.WithFields(logrus.Fields{
		"event":    event.Type,
		"order_id": event.OrderID,
		"status":   event.Status,
		"total":    event.TotalPrice,
	}).Info("Order event")
	return nil
}

func (LogEventPublisher) Close() error { return nil }

func NewEventPublisher(cfg config.KafkaConfig) EventPublisher {
	if len(cfg.Brokers) == 0 {
		return LogEventPublisher{}
	}
	return NewKafkaEventPublisher(cfg)
}

func publishOrderEvent(ctx context.Context, publisher EventPublisher, eventType OrderEventType, order *models.Order) {
	if err := publisher.Publish(ctx, NewOrderEvent(eventType, order)); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":    eventType,
			"order_id": order.ID,
		}).Error("Failed to publish order event")
	}
}
