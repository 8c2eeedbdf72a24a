package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/models"
)

func placeStripeOrder(t *testing.T, env *testEnv, sessionKey string) *CheckoutResult {
	t.Helper()
	ctx := context.Background()

	_, err := env.carts.Add(ctx, sessionKey, "tote", nil, 2)
	require.NoError(t, err)
	result, err := env.checkout.Checkout(ctx, sessionKey, validCheckout(models.PaymentProviderStripe))
	require.NoError(t, err)
	return result
}

func completed(orderID string) *PaymentNotification {
	return &PaymentNotification{
		Type:             stripeCheckoutCompleted,
		Completed:        true,
		SessionID:        "cs_test_1",
		OrderID:          orderID,
		PaymentReference: "pi_confirmed",
	}
}

func TestHandleNotificationMarksOrderProcessing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result := placeStripeOrder(t, env, "session-a")

	env.gateway.notification = completed(result.Order.ID.String())
	require.NoError(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"))

	order, err := env.checkout.GetOrder(ctx, "session-a", result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, "pi_confirmed", order.PaymentReference)

	assert.Equal(t, []OrderEventType{OrderEventCreated, OrderEventPaid}, env.events.types())
}

func TestHandleNotificationIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result := placeStripeOrder(t, env, "session-a")

	env.gateway.notification = completed(result.Order.ID.String())
	require.NoError(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"))
	require.NoError(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"))

	order, err := env.checkout.GetOrder(ctx, "session-a", result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, []OrderEventType{OrderEventCreated, OrderEventPaid}, env.events.types())
}

func TestHandleNotificationRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.gateway.parseErr = fmt.Errorf("%w: bad signature", ErrInvalidNotification)
	assert.ErrorIs(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"), ErrInvalidNotification)

	env.gateway.parseErr = nil
	env.gateway.notification = completed(uuid.NewString())
	assert.ErrorIs(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"), ErrOrderNotFound)

	env.gateway.notification = completed("not-a-uuid")
	assert.ErrorIs(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"), ErrInvalidNotification)
}

func TestHandleNotificationIgnoresOtherEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result := placeStripeOrder(t, env, "session-a")

	env.gateway.notification = &PaymentNotification{Type: "payment_intent.created"}
	require.NoError(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"))

	order, err := env.checkout.GetOrder(ctx, "session-a", result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestCompleteReturnClearsOriginatingCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result := placeStripeOrder(t, env, "session-a")
	_, err := env.carts.Add(ctx, "session-b", "tote", nil, 1)
	require.NoError(t, err)

	order, err := env.payments.CompleteReturn(ctx, result.Order.GatewaySessionID)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, order.ID)

	count, err := env.carts.Count(ctx, "session-a")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = env.carts.Count(ctx, "session-b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = env.payments.CompleteReturn(ctx, "cs_unknown")
	assert.ErrorIs(t, err, ErrGatewayFailure)
}

func TestCancelReturn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result := placeStripeOrder(t, env, "session-a")

	_, err := env.payments.CancelReturn(ctx, "session-b", result.Order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	order, err := env.payments.CancelReturn(ctx, "session-a", result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, order.Status)

	count, err := env.carts.Count(ctx, "session-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = env.payments.CancelReturn(ctx, "session-a", result.Order.ID)
	assert.ErrorIs(t, err, ErrInvalidOrderTransition)

	// A canceled order is not revived by a late payment notification.
	env.gateway.notification = completed(result.Order.ID.String())
	require.NoError(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"))

	stored, err := env.checkout.GetOrder(ctx, "session-a", result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, stored.Status)

	assert.Equal(t, []OrderEventType{OrderEventCreated, OrderEventCanceled}, env.events.types())
}

func TestPaymentForCanceledOrderIsReportedAsError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result := placeStripeOrder(t, env, "session-a")

	_, err := env.payments.CancelReturn(ctx, "session-a", result.Order.ID)
	require.NoError(t, err)

	hook := logtest.NewGlobal()
	defer hook.Reset()

	env.gateway.notification = completed(result.Order.ID.String())
	require.NoError(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"))

	var reported *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Payment completed for canceled order" {
			reported = entry
		}
	}
	require.NotNil(t, reported)
	assert.Equal(t, logrus.ErrorLevel, reported.Level)
	assert.Equal(t, "pi_confirmed", reported.Data["reference"])

	// A duplicate completion for a paid order stays informational.
	paid := placeStripeOrder(t, env, "session-b")
	env.gateway.notification = completed(paid.Order.ID.String())
	require.NoError(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"))
	hook.Reset()
	require.NoError(t, env.payments.HandleNotification(ctx, []byte("{}"), "sig"))

	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, entry.Level, entry.Message)
	}
}
