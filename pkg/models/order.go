package models

import (
	"time"
)

// OrderStatus is the fulfillment lifecycle of an order. Transitions are not
// enforced as a state machine: admins may set any value, and the only
// automatic transition is payment verification flipping PaymentStatus to paid.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPending, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// ShippingAddress is embedded into the order row as a snapshot of the form
// fields at checkout time, not a foreign key.
type ShippingAddress struct {
	FirstName string `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string `gorm:"type:varchar(100)" json:"last_name"`
	Email     string `gorm:"type:varchar(100)" json:"email"`
	Phone     string `gorm:"type:varchar(20)" json:"phone"`
	Address   string `gorm:"type:varchar(255)" json:"address"`
	City      string `gorm:"type:varchar(100)" json:"city"`
	State     string `gorm:"type:varchar(100)" json:"state"`
	ZipCode   string `gorm:"type:varchar(20)" json:"zip_code"`
	Country   string `gorm:"type:varchar(100)" json:"country"`
}

func (a ShippingAddress) IsZero() bool {
	return a == ShippingAddress{}
}

type Order struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	UserID          *string         `gorm:"type:varchar(36);index" json:"user_id"`
	Status          OrderStatus     `gorm:"type:varchar(20);default:'pending_payment'" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	Subtotal        float64         `gorm:"type:decimal(10,2)" json:"subtotal"`
	Tax             float64         `gorm:"type:decimal(10,2)" json:"tax"`
	Shipping        float64         `gorm:"type:decimal(10,2)" json:"shipping"`
	Discount        float64         `gorm:"type:decimal(10,2)" json:"discount"`
	TotalAmount     float64         `gorm:"type:decimal(10,2)" json:"total_amount"`
	Currency        string          `gorm:"type:varchar(3)" json:"currency"`
	IsGuestOrder    bool            `gorm:"not null" json:"is_guest_order"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `gorm:"index" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a denormalized snapshot of one cart line at submission time.
// Historical orders stay stable even if the product is later edited or deleted.
type OrderItem struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID           string    `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID         string    `gorm:"type:varchar(36);not null" json:"product_id"`
	ProductName       string    `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductSKU        string    `gorm:"type:varchar(100)" json:"product_sku"`
	VariantID         string    `gorm:"type:varchar(36)" json:"variant_id"`
	VariantName       string    `gorm:"type:varchar(255)" json:"variant_name"`
	VariantAttributes string    `gorm:"type:text" json:"variant_attributes"` // JSON string
	Quantity          int32     `gorm:"not null" json:"quantity"`
	UnitPrice         float64   `gorm:"type:decimal(10,2)" json:"unit_price"`
	TotalPrice        float64   `gorm:"type:decimal(10,2)" json:"total_price"`
	CreatedAt         time.Time `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
