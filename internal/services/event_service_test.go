package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/models"
)

func TestNewEventPublisher(t *testing.T) {
	assert.IsType(t, LogEventPublisher{}, NewEventPublisher(config.KafkaConfig{Topic: "order-events"}))

	publisher := NewEventPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "order-events"})
	require.IsType(t, &KafkaEventPublisher{}, publisher)

	writer := publisher.(*KafkaEventPublisher).writer
	assert.Equal(t, "order-events", writer.Topic)
	assert.Equal(t, 1, writer.BatchSize)
	assert.LessOrEqual(t, writer.BatchTimeout, 50*time.Millisecond)
	assert.NoError(t, publisher.Close())
}

func TestNewOrderEvent(t *testing.T) {
	order := &models.Order{
		TotalPrice:       decimal.RequireFromString("25"),
		PaymentProvider:  models.PaymentProviderStripe,
		Status:           models.OrderStatusProcessing,
		PaymentReference: "pi_1",
	}
	order.ID = uuid.New()

	event := NewOrderEvent(OrderEventPaid, order)
	assert.Equal(t, OrderEventPaid, event.Type)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, "25.00", event.TotalPrice)
	assert.Equal(t, "stripe", event.PaymentProvider)
	assert.False(t, event.OccurredAt.IsZero())

	assert.NoError(t, LogEventPublisher{}.Publish(context.Background(), event))
}
