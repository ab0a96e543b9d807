package business

import "time"

type Business struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	OwnerID   string    `gorm:"type:char(36);not null;index:ix_businesses_owner_id"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Category  string    `gorm:"type:varchar(32);not null"`
	IsActive  bool      `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Business) TableName() string { return "businesses" }

// Wallet holds a vendor's settled balance. Only the settlement service may
// credit it, via a single atomic increment.
type Wallet struct {
	ID           string    `gorm:"type:char(36);primaryKey"`
	BusinessID   string    `gorm:"type:char(36);not null;uniqueIndex:ux_wallets_business_id"`
	BalanceCents int64     `gorm:"not null;default:0"`
	Currency     string    `gorm:"type:char(3);not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }
