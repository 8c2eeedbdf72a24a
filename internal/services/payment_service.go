// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/models"
)

var (
	ErrGatewayFailure         = errors.New("payment gateway failure")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidOrderTransition = errors.New("invalid order status transition")
	ErrInvalidNotification    = errors.New("invalid payment notification")
)

// GatewaySession is a hosted payment session opened for one order.
type GatewaySession struct {
	ID               string
	OrderID          string
	PaymentReference string
	RedirectURL      string
}

// PaymentNotification is a verified gateway callback. Only Completed
// notifications change order state.
type PaymentNotification struct {
	Type             string
	Completed        bool
	SessionID        string
	OrderID          string
	PaymentReference string
}

// PaymentGateway is the boundary to the hosted payment provider.
type PaymentGateway interface {
	CreateSession(ctx context.Context, order *models.Order) (*GatewaySession, error)
	// ParseNotification verifies the signature and decodes the payload.
	ParseNotification(payload []byte, signature string) (*PaymentNotification, error)
	LookupSession(ctx context.Context, sessionID string) (*GatewaySession, error)
}

type PaymentService struct {
	db      *gorm.DB
	gateway PaymentGateway
	carts   *CartService
	events  EventPublisher
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway, carts *CartService, events EventPublisher) *PaymentService {
	return &PaymentService{
		db:      db,
		gateway: gateway,
		carts:   carts,
		events:  events,
	}
}

// HandleNotification applies a gateway callback. Duplicate completions for an
// order that already left pending are acknowledged without a state change.
func (s *PaymentService) HandleNotification(ctx context.Context, payload []byte, signature string) error {
	notification, err := s.gateway.ParseNotification(payload, signature)
	if err != nil {
		logrus.WithError(err).Warn("Rejected payment notification")
		return err
	}

	if !notification.Completed {
		logrus.WithField("type", notification.Type).Debug("Ignoring payment notification")
		return nil
	}

	orderID, err := uuid.Parse(notification.OrderID)
	if err != nil {
		logrus.WithField("order_id", notification.OrderID).Warn("Payment notification without a valid order id")
		return fmt.Errorf("%w: missing order id", ErrInvalidNotification)
	}

	order, err := s.transition(ctx, orderID, models.OrderStatusProcessing, map[string]interface{}{
		"payment_reference": notification.PaymentReference,
	})
	switch {
	case errors.Is(err, ErrOrderNotFound):
		logrus.WithFields(logrus.Fields{
			"order_id":   orderID,
			"session_id": notification.SessionID,
		}).Error("Payment completed for unknown order")
		return err
	case errors.Is(err, ErrInvalidOrderTransition):
		entry := logrus.WithFields(logrus.Fields{
			"order_id":  orderID,
			"reference": notification.PaymentReference,
		})
		if order != nil && order.Status == models.OrderStatusCanceled {
			entry.Error("Payment completed for canceled order")
		} else {
			entry.Info("Payment completion for non-pending order acknowledged")
		}
		return nil
	case err != nil:
		return err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"reference": order.PaymentReference,
	}).Info("Order paid")

	publishOrderEvent(ctx, s.events, OrderEventPaid, order)
	return nil
}

// CompleteReturn handles the customer's browser coming back from the hosted
// payment page and clears the cart the order was placed from.
func (s *PaymentService) CompleteReturn(ctx context.Context, sessionID string) (*models.Order, error) {
	session, err := s.gateway.LookupSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	orderID, err := uuid.Parse(session.OrderID)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	order, err := s.findOrder(ctx, s.db.WithContext(ctx).Where("id = ?", orderID))
	if err != nil {
		return nil, err
	}

	if _, err := s.carts.Clear(ctx, order.CartKey); err != nil {
		return nil, err
	}

	return order, nil
}

// CancelReturn cancels a pending order placed from sessionKey. The cart is
// left as it was.
func (s *PaymentService) CancelReturn(ctx context.Context, sessionKey string, orderID uuid.UUID) (*models.Order, error) {
	if _, err := s.findOrder(ctx, s.db.WithContext(ctx).Where("id = ? AND cart_key = ?", orderID, sessionKey)); err != nil {
		return nil, err
	}

	order, err := s.transition(ctx, orderID, models.OrderStatusCanceled, nil)
	if err != nil {
		return nil, err
	}

	publishOrderEvent(ctx, s.events, OrderEventCanceled, order)
	return order, nil
}

// transition moves a pending order to next with a compare-and-set update.
func (s *PaymentService) transition(ctx context.Context, orderID uuid.UUID, next models.OrderStatus, extra map[string]interface{}) (*models.Order, error) {
	if !models.OrderStatusPending.CanTransitionTo(next) {
		return nil, ErrInvalidOrderTransition
	}

	updates := map[string]interface{}{"status": next}
	for column, value := range extra {
		updates[column] = value
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update order: %w", res.Error)
	}

	order, err := s.findOrder(ctx, db.Where("id = ?", orderID))
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return order, ErrInvalidOrderTransition
	}
	return order, nil
}

func (s *PaymentService) findOrder(ctx context.Context, query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := query.Preload("Items").First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}
