// internal/services/checkout_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidProvider = errors.New("invalid payment provider")
)

type CheckoutService struct {
	db      *gorm.DB
	carts   *CartService
	gateway PaymentGateway
	events  EventPublisher
}

type CheckoutRequest struct {
	FirstName           string                 `json:"first_name" form:"first_name" validate:"required,max=50"`
	LastName            string                 `json:"last_name" form:"last_name" validate:"required,max=50"`
	Email               string                 `json:"email" form:"email" validate:"required,email,max=254"`
	Company             string                 `json:"company" form:"company" validate:"max=100"`
	Address1            string                 `json:"address1" form:"address1" validate:"max=100"`
	Address2            string                 `json:"address2" form:"address2" validate:"max=255"`
	City                string                 `json:"city" form:"city" validate:"max=100"`
	Country             string                 `json:"country" form:"country" validate:"max=100"`
	Province            string                 `json:"province" form:"province" validate:"max=100"`
	PostalCode          string                 `json:"postal_code" form:"postal_code" validate:"max=20"`
	Phone               string                 `json:"phone" form:"phone" validate:"phone"`
	SpecialInstructions string                 `json:"special_instructions" form:"special_instructions" validate:"max=1000"`
	PaymentProvider     models.PaymentProvider `json:"payment_provider" form:"payment_provider" validate:"required,payment_provider"`
}

// Normalize trims every field and strips markup from the free-text ones.
func (r *CheckoutRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.PaymentProvider = models.PaymentProvider(strings.ToLower(strings.TrimSpace(string(r.PaymentProvider))))

	for _, field := range []*string{
		&r.Company, &r.Address1, &r.Address2, &r.City, &r.Country,
		&r.Province, &r.PostalCode, &r.Phone, &r.SpecialInstructions,
	} {
		*field = utils.StripTags(*field)
	}
}

type CheckoutResult struct {
	Order       *models.Order `json:"order"`
	RedirectURL string        `json:"redirect_url,omitempty"`
}

func NewCheckoutService(db *gorm.DB, carts *CartService, gateway PaymentGateway, events EventPublisher) *CheckoutService {
	return &CheckoutService{
		db:      db,
		carts:   carts,
		gateway: gateway,
		events:  events,
	}
}

// Checkout snapshots the session's cart into a pending order. For hosted
// providers it also opens a gateway session; if that fails the order is
// deleted again. The cart is never modified here.
func (s *CheckoutService) Checkout(ctx context.Context, sessionKey string, req *CheckoutRequest) (*CheckoutResult, error) {
	if !req.PaymentProvider.Valid() {
		return nil, ErrInvalidProvider
	}

	cart, err := s.carts.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if cart, err = s.carts.refresh(ctx, cart.ID); err != nil {
		return nil, err
	}
	if cart.TotalItems <= 0 || len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	order := newOrderSnapshot(sessionKey, req, cart)
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	result := &CheckoutResult{Order: order}

	if req.PaymentProvider.HostedCheckout() {
		session, err := s.gateway.CreateSession(ctx, order)
		if err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Error("Payment session creation failed")
			s.discardLogged(ctx, order.ID)
			return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
		}

		err = s.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"payment_reference":  session.PaymentReference,
				"gateway_session_id": session.ID,
			}).Error
		if err != nil {
			// Without the session id the success return cannot find the
			// order, so the unpaid gateway session is abandoned with it.
			logrus.WithError(err).WithFields(logrus.Fields{
				"order_id":   order.ID,
				"session_id": session.ID,
			}).Error("Failed to store payment reference")
			s.discardLogged(ctx, order.ID)
			return nil, fmt.Errorf("failed to store payment reference: %w", err)
		}

		order.PaymentReference = session.PaymentReference
		order.GatewaySessionID = session.ID
		result.RedirectURL = session.RedirectURL
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"provider": order.PaymentProvider,
		"total":    order.TotalPrice.StringFixed(2),
	}).Info("Order placed")

	publishOrderEvent(ctx, s.events, OrderEventCreated, order)
	return result, nil
}

// newOrderSnapshot copies the cart lines at their current prices. The order
// total is the sum of the copied lines.
func newOrderSnapshot(sessionKey string, req *CheckoutRequest, cart *models.Cart) *models.Order {
	order := &models.Order{
		CartKey:             sessionKey,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               req.Email,
		Company:             req.Company,
		Address1:            req.Address1,
		Address2:            req.Address2,
		City:                req.City,
		Country:             req.Country,
		Province:            req.Province,
		PostalCode:          req.PostalCode,
		Phone:               req.Phone,
		SpecialInstructions: req.SpecialInstructions,
		PaymentProvider:     req.PaymentProvider,
		Status:              models.OrderStatusPending,
		TotalPrice:          decimal.Zero,
	}

	for _, line := range cart.Items {
		item := models.OrderItem{
			ProductID:     line.ProductID,
			ProductSizeID: line.ProductSizeID,
			ProductName:   line.Product.Name,
			Quantity:      line.Quantity,
			Price:         line.Product.Price,
		}
		if line.ProductSize != nil {
			item.SizeName = line.ProductSize.Name
		}
		order.Items = append(order.Items, item)
		order.TotalPrice = order.TotalPrice.Add(item.TotalPrice())
	}

	return order
}

func (s *CheckoutService) discardLogged(ctx context.Context, orderID uuid.UUID) {
	if err := s.discard(ctx, orderID); err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Error("Failed to discard order")
	}
}

func (s *CheckoutService) discard(ctx context.Context, orderID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", orderID).Delete(&models.Order{}).Error
	})
}

// ListOrders returns the orders placed from sessionKey.
func (s *CheckoutService) ListOrders(ctx context.Context, sessionKey string, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("cart_key = ?", sessionKey)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "total_price"})
	query = utils.ApplyPagination(query, params)

	var orders []models.Order
	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders: %w", err)
	}

	return orders, total, nil
}

func (s *CheckoutService) GetOrder(ctx context.Context, sessionKey string, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND cart_key = ?", orderID, sessionKey).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}
