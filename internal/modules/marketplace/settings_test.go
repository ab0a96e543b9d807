package marketplace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/marketplace"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/testdb"
)

var defaults = marketplace.Defaults{CommissionRateBps: 1000, ProcessingFeeBps: 250, Currency: "KES"}

func TestGetCreatesDefaultRow(t *testing.T) {
	db := testdb.Open(t)
	m := marketplace.NewManager(db, defaults)

	s, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000, s.CommissionRateBps)
	assert.Equal(t, 250, s.ProcessingFeeBps)
	assert.Equal(t, "KES", s.Currency)

	var count int64
	require.NoError(t, db.Model(&marketplace.Settings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// repeated reads reuse the same row
	again, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
}

func TestGetServesFromCache(t *testing.T) {
	db := testdb.Open(t)
	m := marketplace.NewManager(db, defaults)

	s, err := m.Get(context.Background())
	require.NoError(t, err)

	// a write that bypasses the manager is invisible until invalidation
	require.NoError(t, db.Model(&marketplace.Settings{}).Where("id = ?", s.ID).
		Update("commission_rate_bps", 1500).Error)

	cached, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000, cached.CommissionRateBps)

	m.Invalidate()
	fresh, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1500, fresh.CommissionRateBps)
}

func TestUpdateWritesAndInvalidates(t *testing.T) {
	db := testdb.Open(t)
	m := marketplace.NewManager(db, defaults)

	newRate := 1200
	newMin := int64(5000)
	s, err := m.Update(context.Background(), marketplace.UpdateInput{
		CommissionRateBps: &newRate,
		MinOrderCents:     &newMin,
	})
	require.NoError(t, err)
	assert.Equal(t, 1200, s.CommissionRateBps)
	assert.Equal(t, 250, s.ProcessingFeeBps) // untouched
	assert.Equal(t, int64(5000), s.MinOrderCents)

	got, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1200, got.CommissionRateBps)
}

func TestRatesAsDecimals(t *testing.T) {
	s := marketplace.Settings{CommissionRateBps: 1000, ProcessingFeeBps: 250}
	assert.Equal(t, "0.1", s.CommissionRate().String())
	assert.Equal(t, "0.025", s.ProcessingRate().String())
}
