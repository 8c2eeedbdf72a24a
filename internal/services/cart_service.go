// internal/services/cart_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront/internal/models"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("invalid quantity")
)

type QuantityAction string

const (
	QuantityIncrement QuantityAction = "inc"
	QuantityDecrement QuantityAction = "dec"
	QuantityExplicit  QuantityAction = "set"
)

// CartService owns carts and their lines. Every mutation commits in its own
// short transaction and is followed by Recalculate in a separate one.
type CartService struct {
	db      *gorm.DB
	catalog *CatalogService
}

type AddToCartRequest struct {
	Quantity *int   `json:"quantity" form:"quantity" validate:"omitempty,min=1"`
	SizeID   string `json:"size_id" form:"size_id" validate:"omitempty,uuid"`
}

// Normalize applies the default quantity of one.
func (r *AddToCartRequest) Normalize() (quantity int, sizeID *uuid.UUID) {
	quantity = 1
	if r.Quantity != nil {
		quantity = *r.Quantity
	}
	if id, err := uuid.Parse(r.SizeID); err == nil {
		sizeID = &id
	}
	return quantity, sizeID
}

type UpdateCartItemRequest struct {
	Action   QuantityAction `json:"action" form:"action" validate:"omitempty,oneof=inc dec set"`
	Quantity *int           `json:"quantity" form:"quantity"`
}

// Resolve maps an omitted action to an explicit quantity.
func (r *UpdateCartItemRequest) Resolve() (QuantityAction, int, error) {
	switch r.Action {
	case QuantityIncrement, QuantityDecrement:
		return r.Action, 0, nil
	}
	if r.Quantity == nil {
		return "", 0, ErrInvalidQuantity
	}
	return QuantityExplicit, *r.Quantity, nil
}

func NewCartService(db *gorm.DB, catalog *CatalogService) *CartService {
	return &CartService{db: db, catalog: catalog}
}

// GetOrCreate returns the cart bound to sessionKey. Concurrent callers race on
// the session_key unique index, never on a read-then-insert.
func (s *CartService) GetOrCreate(ctx context.Context, sessionKey string) (*models.Cart, error) {
	db := s.db.WithContext(ctx)

	candidate := models.Cart{SessionKey: sessionKey}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoNothing: true,
	}).Create(&candidate).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	var cart models.Cart
	if err := db.Where("session_key = ?", sessionKey).First(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// Get returns the session's cart with its lines, products and sizes.
func (s *CartService) Get(ctx context.Context, sessionKey string) (*models.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, cart.ID)
}

func (s *CartService) Count(ctx context.Context, sessionKey string) (int, error) {
	cart, err := s.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return 0, err
	}
	return cart.TotalItems, nil
}

// Add puts quantity units of the product (and optional size) into the cart,
// merging with an existing line for the same product and size.
func (s *CartService) Add(ctx context.Context, sessionKey, slug string, sizeID *uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	var size *models.ProductSize
	if sizeID != nil {
		if size, err = s.catalog.GetSizeVariant(ctx, product, *sizeID); err != nil {
			return nil, err
		}
	}

	cart, err := s.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	line := models.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		Quantity:  quantity,
	}
	if size != nil {
		line.ProductSizeID = &size.ID
	}
	line.VariantKey = models.VariantKeyFor(line.ProductSizeID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CartItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ? AND variant_key = ?", line.CartID, line.ProductID, line.VariantKey).
			First(&existing).Error

		switch {
		case err == nil:
			return tx.Model(&models.CartItem{}).
				Where("id = ?", existing.ID).
				Update("quantity", gorm.Expr("quantity + ?", quantity)).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			// A concurrent Add may insert the same line between the lookup
			// and this insert; the unique index turns that into an increment.
			return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "variant_key"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
				}),
			}).Create(&line).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"cart_id":  cart.ID,
		"product":  product.Slug,
		"quantity": quantity,
	}).Debug("Cart item added")

	return s.refresh(ctx, cart.ID)
}

// SetQuantity changes one line. Decrementing past one or setting a value
// <= 0 deletes the line.
func (s *CartService) SetQuantity(ctx context.Context, sessionKey string, itemID uuid.UUID, action QuantityAction, value int) (*models.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.CartItem{}).Where("id = ? AND cart_id = ?", itemID, cart.ID)

		switch action {
		case QuantityIncrement:
			res := owned.Update("quantity", gorm.Expr("quantity + 1"))
			return affectedOrMissing(res)

		case QuantityDecrement:
			var item models.CartItem
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND cart_id = ?", itemID, cart.ID).
				First(&item).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCartItemNotFound
				}
				return err
			}
			if item.Quantity <= 1 {
				return tx.Where("id = ?", item.ID).Delete(&models.CartItem{}).Error
			}
			return tx.Model(&models.CartItem{}).
				Where("id = ?", item.ID).
				Update("quantity", gorm.Expr("quantity - 1")).Error

		case QuantityExplicit:
			if value <= 0 {
				res := tx.Where("id = ? AND cart_id = ?", itemID, cart.ID).Delete(&models.CartItem{})
				return affectedOrMissing(res)
			}
			return affectedOrMissing(owned.Update("quantity", value))

		default:
			return ErrInvalidQuantity
		}
	})
	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) || errors.Is(err, ErrInvalidQuantity) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return s.refresh(ctx, cart.ID)
}

// Remove deletes a line, but only from the session's own cart.
func (s *CartService) Remove(ctx context.Context, sessionKey string, itemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cart.ID).
		Delete(&models.CartItem{})
	if err := affectedOrMissing(res); err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	return s.refresh(ctx, cart.ID)
}

func (s *CartService) Clear(ctx context.Context, sessionKey string) (*models.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	return s.refresh(ctx, cart.ID)
}

// Recalculate re-derives TotalItems and Subtotal from the committed lines and
// writes only the fields that changed. The cart row is locked first so
// concurrent recalculations of one cart run one after another and the last
// one always reads every committed mutation.
func (s *CartService) Recalculate(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", cartID).First(&cart).Error; err != nil {
			return err
		}

		var items []models.CartItem
		if err := tx.Preload("Product").Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
			return err
		}

		totalItems, subtotal := sumLines(items)

		updates := map[string]interface{}{}
		if cart.TotalItems != totalItems {
			updates["total_items"] = totalItems
		}
		if !cart.Subtotal.Equal(subtotal) {
			updates["subtotal"] = subtotal
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&models.Cart{}).Where("id = ?", cartID).Updates(updates).Error; err != nil {
			return err
		}
		cart.TotalItems = totalItems
		cart.Subtotal = subtotal
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recalculate cart: %w", err)
	}
	return &cart, nil
}

func sumLines(items []models.CartItem) (int, decimal.Decimal) {
	totalItems := 0
	subtotal := decimal.Zero
	for _, item := range items {
		totalItems += item.Quantity
		subtotal = subtotal.Add(item.TotalPrice())
	}
	return totalItems, subtotal
}

// refresh recalculates after a committed mutation and reloads the cart. A
// failed recalculation leaves stale totals for the next one to fix.
func (s *CartService) refresh(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	if _, err := s.Recalculate(ctx, cartID); err != nil {
		logrus.WithError(err).WithField("cart_id", cartID).Warn("Cart totals are stale")
	}
	return s.load(ctx, cartID)
}

func (s *CartService) load(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Items.Product").
		Preload("Items.ProductSize").
		Where("id = ?", cartID).
		First(&cart).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

func affectedOrMissing(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// CartView is the JSON shape shared by the summary and compact cart views.
type CartView struct {
	View       string         `json:"view"`
	TotalItems int            `json:"total_items"`
	Subtotal   string         `json:"subtotal"`
	Items      []CartLineView `json:"items"`
}

type CartLineView struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"product_id"`
	ProductName string     `json:"product_name"`
	ProductSlug string     `json:"product_slug"`
	MainImage   string     `json:"main_image,omitempty"`
	SizeID      *uuid.UUID `json:"size_id,omitempty"`
	SizeName    string     `json:"size_name,omitempty"`
	Quantity    int        `json:"quantity"`
	UnitPrice   string     `json:"unit_price"`
	TotalPrice  string     `json:"total_price"`
}

func NewCartView(view string, cart *models.Cart) CartView {
	out := CartView{
		View:       view,
		TotalItems: cart.TotalItems,
		Subtotal:   cart.Subtotal.StringFixed(2),
		Items:      make([]CartLineView, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		line := CartLineView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			ProductSlug: item.Product.Slug,
			MainImage:   item.Product.MainImage,
			SizeID:      item.ProductSizeID,
			Quantity:    item.Quantity,
			UnitPrice:   item.Product.Price.StringFixed(2),
			TotalPrice:  item.TotalPrice().StringFixed(2),
		}
		if item.ProductSize != nil {
			line.SizeName = item.ProductSize.Name
		}
		out.Items = append(out.Items, line)
	}
	return out
}
