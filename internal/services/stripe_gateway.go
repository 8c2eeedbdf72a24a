// internal/services/stripe_gateway.go
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/models"
)

const stripeCheckoutCompleted = "checkout.session.completed"

// StripeGateway opens Stripe Checkout sessions and verifies Stripe webhooks.
type StripeGateway struct {
	webhookSecret string
	currency      string
	baseURL       string
}

func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	// Initialize Stripe
	stripe.Key = cfg.StripeSecretKey

	return &StripeGateway{
		webhookSecret: cfg.StripeWebhookSecret,
		currency:      cfg.Currency,
		baseURL:       cfg.PublicBaseURL,
	}
}

// MinorUnits converts an amount to cents, rounding half up.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (g *StripeGateway) CreateSession(ctx context.Context, order *models.Order) (*GatewaySession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(g.baseURL + "/v1/payment/stripe/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(fmt.Sprintf("%s/v1/payment/stripe/cancel?order_id=%s", g.baseURL, order.ID)),
		ClientReferenceID:  stripe.String(order.ID.String()),
		CustomerEmail:      stripe.String(order.Email),
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID.String())

	for _, item := range order.Items {
		name := item.ProductName
		if item.SizeName != "" {
			name = fmt.Sprintf("%s (%s)", item.ProductName, item.SizeName)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(MinorUnits(item.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return gatewaySessionFromStripe(s), nil
}

func (g *StripeGateway) ParseNotification(payload []byte, signature string) (*PaymentNotification, error) {
	// The endpoint may be pinned to another API version than the library;
	// only the checkout session fields read below need to line up.
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}

	notification := &PaymentNotification{Type: string(event.Type)}
	if event.Type != stripeCheckoutCompleted {
		return notification, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: event has no data", ErrInvalidNotification)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}

	completed := gatewaySessionFromStripe(&s)
	notification.Completed = true
	notification.SessionID = completed.ID
	notification.OrderID = completed.OrderID
	notification.PaymentReference = completed.PaymentReference
	return notification, nil
}

func (g *StripeGateway) LookupSession(ctx context.Context, sessionID string) (*GatewaySession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	return gatewaySessionFromStripe(s), nil
}

func gatewaySessionFromStripe(s *stripe.CheckoutSession) *GatewaySession {
	out := &GatewaySession{
		ID:               s.ID,
		OrderID:          s.Metadata["order_id"],
		RedirectURL:      s.URL,
		PaymentReference: s.ID,
	}
	if out.OrderID == "" {
		out.OrderID = s.ClientReferenceID
	}
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		out.PaymentReference = s.PaymentIntent.ID
	}
	return out
}
