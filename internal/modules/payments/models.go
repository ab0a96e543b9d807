package payments

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MethodMpesa = "mpesa"
	MethodCOD   = "cod"
	MethodCard  = "card"
)

// Payment is the per-order payment record. The correlation between a single
// gateway push and the possibly-many orders it covers lives on the orders
// themselves (correlation_token); this row carries the final outcome:
// receipt, confirmation and settlement.
type Payment struct {
	ID      string `gorm:"type:char(36);primaryKey"`
	OrderID string `gorm:"type:char(36);not null;uniqueIndex:ux_payments_order_id"`

	Method      string  `gorm:"type:varchar(20);not null"`
	AmountCents int64   `gorm:"not null"`
	Currency    string  `gorm:"type:char(3);not null"`
	PhoneE164   *string `gorm:"type:varchar(15)"`

	// gateway checkout-request id of the push that last covered this order
	CorrelationID *string `gorm:"type:varchar(64);index:ix_payments_correlation_id"`
	// e.g. NLJ7RT56, set by the success callback
	ReceiptCode *string `gorm:"type:varchar(20);index:ix_payments_receipt_code"`

	IsConfirmed bool `gorm:"not null;default:0"`
	IsSettled   bool `gorm:"not null;default:0"`

	FailureReason *string   `gorm:"type:varchar(255)"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// GatewayEvent persists every callback delivery as received, before any
// interpretation. Audit trail plus the raw material for the pending sweep.
type GatewayEvent struct {
	ID            string         `gorm:"type:char(36);primaryKey"`
	CorrelationID string         `gorm:"type:varchar(64);not null;index:ix_gateway_events_correlation_id"`
	ResultCode    int            `gorm:"not null"`
	ResultDesc    string         `gorm:"type:varchar(255);not null"`
	PayloadJSON   datatypes.JSON `gorm:"type:json;not null"`
	ReceivedAt    time.Time      `gorm:"not null"`
	ProcessedAt   *time.Time
	ProcessError  *string `gorm:"type:varchar(255)"`
}

func (GatewayEvent) TableName() string { return "gateway_events" }
