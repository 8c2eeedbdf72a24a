// internal/models/order.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a snapshot of a cart at checkout. Only Status and the payment
// references change after creation.
type Order struct {
	BaseModel
	CartKey             string          `json:"-" gorm:"size:64;not null;index"`
	FirstName           string          `json:"first_name" gorm:"size:50;not null"`
	LastName            string          `json:"last_name" gorm:"size:50;not null"`
	Email               string          `json:"email" gorm:"size:254;not null"`
	Company             string          `json:"company,omitempty" gorm:"size:100"`
	Address1            string          `json:"address1,omitempty" gorm:"size:100"`
	Address2            string          `json:"address2,omitempty" gorm:"size:255"`
	City                string          `json:"city,omitempty" gorm:"size:100"`
	Country             string          `json:"country,omitempty" gorm:"size:100"`
	Province            string          `json:"province,omitempty" gorm:"size:100"`
	PostalCode          string          `json:"postal_code,omitempty" gorm:"size:20"`
	Phone               string          `json:"phone,omitempty" gorm:"size:15"`
	SpecialInstructions string          `json:"special_instructions,omitempty" gorm:"type:text"`
	TotalPrice          decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	PaymentProvider     PaymentProvider `json:"payment_provider" gorm:"type:varchar(20);not null"`
	Status              OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentReference    string          `json:"payment_reference,omitempty" gorm:"size:255"`
	GatewaySessionID    string          `json:"-" gorm:"size:255;index"`

	// Relationships
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem freezes a cart line, including the unit price at order time.
type OrderItem struct {
	BaseModel
	OrderID       uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	ProductSizeID *uuid.UUID      `json:"product_size_id,omitempty" gorm:"type:uuid"`
	ProductName   string          `json:"product_name" gorm:"size:255;not null"`
	SizeName      string          `json:"size_name,omitempty" gorm:"size:20"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
}

func (i OrderItem) TotalPrice() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
