package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderNumber      string          `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID           *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	Status           string          `gorm:"type:varchar(32);index;not null" json:"status"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	DeliveryMethod   string          `json:"delivery_method"`
	AddressLine      string          `json:"address_line"`
	Apartment        string          `json:"apartment"`
	City             string          `json:"city"`
	District         string          `json:"district"`
	Subtotal         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DeliveryFee      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"delivery_fee"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency         string          `json:"currency"`
	PaymentMethod    string          `json:"payment_method"`
	Notes            string          `json:"notes"`
	CancelMessage    string          `json:"cancel_message"`
	Rewarded         bool            `gorm:"not null;default:false;index" json:"rewarded"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	PreparingAt      *time.Time      `json:"preparing_at"`
	ReadyAt          *time.Time      `json:"ready_at"`
	OutForDeliveryAt *time.Time      `json:"out_for_delivery_at"`
	DeliveredAt      *time.Time      `json:"delivered_at"`
	CancelledAt      *time.Time      `json:"cancelled_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Items            []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID     uint              `gorm:"index;not null" json:"order_id"`
	ProductRef  string            `json:"product_ref"`
	ProductName string            `json:"product_name"`
	SizeLabel   string            `json:"size_label"`
	Quantity    int               `json:"quantity"`
	UnitPrice   decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"line_total"`
	Choices     []OrderItemChoice `json:"choices,omitempty"`
}

// OrderItemChoice is one selected option of a line item, e.g. "Sauce: garlic".
type OrderItemChoice struct {
	BaseModel
	OrderItemID uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_item_id"`
	Group       string          `json:"group"`
	Value       string          `json:"value"`
	PriceDelta  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_delta"`
}
