package orders

import (
	"time"

	"gorm.io/datatypes"
)

// Order status: forward-only, except the terminal cancel.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// payment_status is set by the callback reconciler (or an admin override)
// and is immutable afterwards except for refund.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

type Order struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	OrderNumber string `gorm:"type:varchar(20);not null;uniqueIndex:ux_orders_order_number"`
	BuyerID     string `gorm:"type:char(36);not null;index:ix_orders_buyer_id"`
	BusinessID  string `gorm:"type:char(36);not null;index:ix_orders_business_id"`

	Status        string `gorm:"type:varchar(20);not null"`
	PaymentStatus string `gorm:"type:varchar(20);not null"`

	TotalCents int64  `gorm:"not null"`
	Currency   string `gorm:"type:char(3);not null"`

	// CorrelationToken links the order to the gateway request that covers
	// it; rewritten when the buyer re-initiates payment.
	CorrelationToken *string `gorm:"type:varchar(64);index:ix_orders_correlation_token"`

	PaymentMethod string         `gorm:"type:varchar(20);not null"`
	ShippingJSON  datatypes.JSON `gorm:"type:json"`

	PaidAt      *time.Time
	DeliveredAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is immutable once created; PriceCents is the price at order
// time, independent of later product price changes.
type OrderItem struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	OrderID    string    `gorm:"type:char(36);not null;index:ix_order_items_order_id"`
	ProductID  string    `gorm:"type:char(36);not null;index:ix_order_items_product_id"`
	Quantity   int       `gorm:"not null"`
	PriceCents int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderEvent is the audit trail for lifecycle transitions.
type OrderEvent struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	OrderID    string    `gorm:"type:char(36);not null;index:ix_order_events_order_id"`
	ActorID    string    `gorm:"type:char(36);not null"`
	Action     string    `gorm:"type:varchar(20);not null"`
	FromStatus string    `gorm:"type:varchar(20);not null"`
	ToStatus   string    `gorm:"type:varchar(20);not null"`
	Note       *string   `gorm:"type:varchar(255)"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (OrderEvent) TableName() string { return "order_events" }
