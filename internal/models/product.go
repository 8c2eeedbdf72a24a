// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name        string          `json:"name" gorm:"size:255;not null"`
	Slug        string          `json:"slug" gorm:"size:255;not null;uniqueIndex"`
	Description string          `json:"description" gorm:"type:text"`
	Color       string          `json:"color" gorm:"size:50"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	MainImage   string          `json:"main_image" gorm:"size:255"`
	Images      StringArray     `json:"images"`

	// Relationships
	Sizes []ProductSize `json:"sizes,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// ProductSize is a sized variant of a product with its own stock.
type ProductSize struct {
	BaseModel
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_size"`
	Name      string    `json:"name" gorm:"size:20;not null;uniqueIndex:idx_product_size"`
	Stock     int       `json:"stock" gorm:"not null;default:0"`
}
