package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/business"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/catalog"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/marketplace"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/settlement"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
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
	)
	if err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	log.Println("✓ schema migrated successfully")
}
