package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Daraja struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	BaseURL        string
	CallbackURL    string
	Timeout        time.Duration
}

type Config struct {
	ListenAddr string
	DBDSN      string

	Daraja Daraja

	// Defaults seeded into marketplace_settings when the row is missing.
	CommissionRateBps int
	ProcessingFeeBps  int
	Currency          string
}

// Load reads configuration from the environment. Only DB_DSN is strictly
// required; Daraja credentials are required once push payments are used.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		DBDSN:      os.Getenv("DB_DSN"),
		Daraja: Daraja{
			ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
			Shortcode:      os.Getenv("MPESA_SHORTCODE"),
			Passkey:        os.Getenv("MPESA_PASSKEY"),
			BaseURL:        getenv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
			Timeout:        getdur("MPESA_TIMEOUT", 30*time.Second),
		},
		CommissionRateBps: getint("COMMISSION_RATE_BPS", 1000), // 10%
		ProcessingFeeBps:  getint("PROCESSING_FEE_BPS", 250),   // 2.5%
		Currency:          getenv("CURRENCY", "KES"),
	}

	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("DB_DSN environment variable is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
