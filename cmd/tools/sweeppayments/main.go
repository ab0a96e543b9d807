package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/notifications"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments"
)

// Fails push payments stuck in pending past the cutoff, the reconciliation
// backstop for callbacks the gateway never delivered. Run from cron.
func main() {
	maxAge := flag.Duration("max-age", 2*time.Hour, "fail push payments pending longer than this")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	bus := notifications.NewBus(logger)
	bus.Subscribe(notifications.PaymentFailed{}.Name(), notifications.LogHandler(logger))

	svc := payments.NewWebhookService(db, bus, logger)
	swept, err := svc.PendingSweep(context.Background(), *maxAge)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
	logger.Info("sweep complete", "swept", swept)
}
