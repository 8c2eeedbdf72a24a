// internal/models/cart.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is bound to one session key. TotalItems and Subtotal are caches
// derived from the items and only written by recalculation.
type Cart struct {
	BaseModel
	SessionKey string          `json:"-" gorm:"size:64;not null;uniqueIndex"`
	TotalItems int             `json:"total_items" gorm:"not null;default:0"`
	Subtotal   decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null;default:0"`

	// Relationships
	Items []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

// CartItem is one line of a cart. VariantKey mirrors ProductSizeID (empty
// when the line has no size) so the (cart, product, size) uniqueness also
// holds for size-less lines, where a NULL would not collide.
type CartItem struct {
	BaseModel
	CartID        uuid.UUID  `json:"cart_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_line"`
	ProductID     uuid.UUID  `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_line;index"`
	ProductSizeID *uuid.UUID `json:"product_size_id" gorm:"type:uuid"`
	VariantKey    string     `json:"-" gorm:"size:36;not null;default:'';uniqueIndex:idx_cart_line"`
	Quantity      int        `json:"quantity" gorm:"not null"`

	// Relationships
	Product     Product      `json:"product" gorm:"foreignKey:ProductID"`
	ProductSize *ProductSize `json:"product_size,omitempty" gorm:"foreignKey:ProductSizeID"`
}

// TotalPrice is derived at read time from the current product price.
func (i CartItem) TotalPrice() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func VariantKeyFor(sizeID *uuid.UUID) string {
	if sizeID == nil {
		return ""
	}
	return sizeID.String()
}
