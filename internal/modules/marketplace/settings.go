package marketplace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Settings is the platform-wide configuration row. Rates are stored in
// basis points so they survive round-trips without float drift.
type Settings struct {
	ID                string    `gorm:"type:char(36);primaryKey"`
	CommissionRateBps int       `gorm:"not null"`
	ProcessingFeeBps  int       `gorm:"not null"`
	Currency          string    `gorm:"type:char(3);not null"`
	MinOrderCents     int64     `gorm:"not null;default:0"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (Settings) TableName() string { return "marketplace_settings" }

func (s Settings) CommissionRate() decimal.Decimal {
	return decimal.New(int64(s.CommissionRateBps), -4)
}

func (s Settings) ProcessingRate() decimal.Decimal {
	return decimal.New(int64(s.ProcessingFeeBps), -4)
}

type Defaults struct {
	CommissionRateBps int
	ProcessingFeeBps  int
	Currency          string
}

// Manager caches the settings row with a TTL and an explicit invalidation
// hook. Rate updates go through Update, which writes and invalidates; there
// is no ambient global to mutate.
type Manager struct {
	db       *gorm.DB
	defaults Defaults
	ttl      time.Duration

	mu        sync.RWMutex
	cached    *Settings
	fetchedAt time.Time
}

func NewManager(db *gorm.DB, defaults Defaults) *Manager {
	return &Manager{db: db, defaults: defaults, ttl: time.Hour}
}

func (m *Manager) Get(ctx context.Context) (Settings, error) {
	m.mu.RLock()
	if m.cached != nil && time.Since(m.fetchedAt) < m.ttl {
		s := *m.cached
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil && time.Since(m.fetchedAt) < m.ttl {
		return *m.cached, nil
	}

	var s Settings
	err := m.db.WithContext(ctx).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = Settings{
			ID:                uuid.NewString(),
			CommissionRateBps: m.defaults.CommissionRateBps,
			ProcessingFeeBps:  m.defaults.ProcessingFeeBps,
			Currency:          m.defaults.Currency,
			UpdatedAt:         time.Now(),
		}
		err = m.db.WithContext(ctx).Create(&s).Error
	}
	if err != nil {
		return Settings{}, err
	}

	m.cached = &s
	m.fetchedAt = time.Now()
	return s, nil
}

// Invalidate drops the cached row; the next Get rereads the database.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

type UpdateInput struct {
	CommissionRateBps *int
	ProcessingFeeBps  *int
	MinOrderCents     *int64
}

func (m *Manager) Update(ctx context.Context, in UpdateInput) (Settings, error) {
	s, err := m.Get(ctx)
	if err != nil {
		return Settings{}, err
	}

	updates := map[string]any{"updated_at": time.Now()}
	if in.CommissionRateBps != nil {
		updates["commission_rate_bps"] = *in.CommissionRateBps
	}
	if in.ProcessingFeeBps != nil {
		updates["processing_fee_bps"] = *in.ProcessingFeeBps
	}
	if in.MinOrderCents != nil {
		updates["min_order_cents"] = *in.MinOrderCents
	}

	if err := m.db.WithContext(ctx).Model(&Settings{}).
		Where("id = ?", s.ID).
		Updates(updates).Error; err != nil {
		return Settings{}, err
	}

	m.Invalidate()
	return m.Get(ctx)
}
