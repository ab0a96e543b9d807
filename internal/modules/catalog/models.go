package catalog

import "time"

// Product is the read model this service needs from the catalog
// collaborator: ownership, price, and the stock / sales counters that the
// inventory guard mutates.
type Product struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	BusinessID string    `gorm:"type:char(36);not null;index:ix_products_business_id"`
	Name       string    `gorm:"type:varchar(255);not null"`
	PriceCents int64     `gorm:"not null"`
	Currency   string    `gorm:"type:char(3);not null"`
	StockQty   int       `gorm:"not null"`
	SalesCount int       `gorm:"not null;default:0"`
	IsActive   bool      `gorm:"not null;default:1"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Product) TableName() string { return "products" }
