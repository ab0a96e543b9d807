package settlement

import "time"

// Settlement is the immutable record of one release of funds to one vendor
// for one payment. The unique (payment_id, business_id) index is what makes
// "exactly once" a database fact rather than an application promise.
type Settlement struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	PaymentID  string `gorm:"type:char(36);not null;uniqueIndex:ux_settlements_payment_business,priority:1"`
	BusinessID string `gorm:"type:char(36);not null;uniqueIndex:ux_settlements_payment_business,priority:2"`
	OrderID    string `gorm:"type:char(36);not null;index:ix_settlements_order_id"`

	AmountCents        int64     `gorm:"not null"`
	PlatformFeeCents   int64     `gorm:"not null"`
	ProcessingFeeCents int64     `gorm:"not null"`
	NetAmountCents     int64     `gorm:"not null"`
	Currency           string    `gorm:"type:char(3);not null"`
	SettledAt          time.Time `gorm:"not null"`
}

func (Settlement) TableName() string { return "settlements" }
