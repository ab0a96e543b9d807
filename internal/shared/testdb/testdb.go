// Package testdb gives tests a migrated in-memory database with the same
// GORM models the service runs against.
package testdb

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/business"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/catalog"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/marketplace"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/settlement"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// a single connection keeps every session on the same :memory: database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&catalog.Product{},
		&business.Business{},
		&business.Wallet{},
		&orders.Order{},
		&orders.OrderItem{},
		&orders.OrderEvent{},
		&payments.Payment{},
		&payments.GatewayEvent{},
		&settlement.Settlement{},
		&marketplace.Settings{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func SeedBusiness(t *testing.T, db *gorm.DB, name string) business.Business {
	t.Helper()
	now := time.Now()
	b := business.Business{
		ID:        uuid.NewString(),
		OwnerID:   uuid.NewString(),
		Name:      name,
		Category:  "electronics",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("seed business: %v", err)
	}
	w := business.Wallet{
		ID:         uuid.NewString(),
		BusinessID: b.ID,
		Currency:   "KES",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(&w).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	return b
}

func SeedProduct(t *testing.T, db *gorm.DB, businessID string, priceCents int64, stock int) catalog.Product {
	t.Helper()
	now := time.Now()
	p := catalog.Product{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		Name:       "product-" + uuid.NewString()[:8],
		PriceCents: priceCents,
		Currency:   "KES",
		StockQty:   stock,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}
