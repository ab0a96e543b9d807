package settlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/business"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/marketplace"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/notifications"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/settlement"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/testdb"
)

var testDefaults = marketplace.Defaults{CommissionRateBps: 1000, ProcessingFeeBps: 250, Currency: "KES"}

// seedSettleable creates an order in the given state with a confirmed
// payment attached.
func seedSettleable(t *testing.T, db *gorm.DB, businessID, status string, totalCents int64) orders.Order {
	t.Helper()
	now := time.Now()
	o := orders.Order{
		ID:            uuid.NewString(),
		OrderNumber:   orders.NewOrderNumber(now),
		BuyerID:       uuid.NewString(),
		BusinessID:    businessID,
		Status:        status,
		PaymentStatus: orders.PaymentPaid,
		TotalCents:    totalCents,
		Currency:      "KES",
		PaymentMethod: "mpesa",
		PaidAt:        &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&o).Error)

	receipt := "NLJ" + uuid.NewString()[:5]
	p := payments.Payment{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		Method:      payments.MethodMpesa,
		AmountCents: totalCents,
		Currency:    "KES",
		ReceiptCode: &receipt,
		IsConfirmed: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, db.Create(&p).Error)
	return o
}

func walletBalance(t *testing.T, db *gorm.DB, businessID string) int64 {
	t.Helper()
	var w business.Wallet
	require.NoError(t, db.First(&w, "business_id = ?", businessID).Error)
	return w.BalanceCents
}

func TestSettleCreditsVendorWallet(t *testing.T) {
	db := testdb.Open(t)
	bus := notifications.NewBus(testdb.DiscardLogger())

	var released []notifications.SettlementReleased
	bus.Subscribe(notifications.SettlementReleased{}.Name(), func(ctx context.Context, ev notifications.Event) error {
		released = append(released, ev.(notifications.SettlementReleased))
		return nil
	})

	biz := testdb.SeedBusiness(t, db, "Vendor")
	o := seedSettleable(t, db, biz.ID, orders.StatusDelivered, 100000)
	svc := settlement.NewService(db, marketplace.NewManager(db, testDefaults), bus, testdb.DiscardLogger())

	st, err := svc.Settle(context.Background(), o.ID)
	require.NoError(t, err)

	// 10% + 2.5% fees on KES 1,000.00
	assert.Equal(t, int64(100000), st.AmountCents)
	assert.Equal(t, int64(10000), st.PlatformFeeCents)
	assert.Equal(t, int64(2500), st.ProcessingFeeCents)
	assert.Equal(t, int64(87500), st.NetAmountCents)
	assert.Equal(t, biz.ID, st.BusinessID)

	assert.Equal(t, int64(87500), walletBalance(t, db, biz.ID))

	var p payments.Payment
	require.NoError(t, db.First(&p, "order_id = ?", o.ID).Error)
	assert.True(t, p.IsSettled)

	require.Len(t, released, 1)
	assert.Equal(t, int64(87500), released[0].NetCents)
}

func TestSettleTwiceIsRejected(t *testing.T) {
	db := testdb.Open(t)
	biz := testdb.SeedBusiness(t, db, "Vendor")
	o := seedSettleable(t, db, biz.ID, orders.StatusDelivered, 50000)
	svc := settlement.NewService(db, marketplace.NewManager(db, testDefaults),
		notifications.NewBus(testdb.DiscardLogger()), testdb.DiscardLogger())

	_, err := svc.Settle(context.Background(), o.ID)
	require.NoError(t, err)
	_, err = svc.Settle(context.Background(), o.ID)
	require.ErrorIs(t, err, settlement.ErrAlreadySettled)

	// wallet credited exactly once, one settlement row
	assert.Equal(t, int64(43750), walletBalance(t, db, biz.ID))
	var count int64
	require.NoError(t, db.Model(&settlement.Settlement{}).Where("order_id = ?", o.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSettleEligibility(t *testing.T) {
	db := testdb.Open(t)
	biz := testdb.SeedBusiness(t, db, "Vendor")
	svc := settlement.NewService(db, marketplace.NewManager(db, testDefaults),
		notifications.NewBus(testdb.DiscardLogger()), testdb.DiscardLogger())
	ctx := context.Background()

	t.Run("not delivered", func(t *testing.T) {
		o := seedSettleable(t, db, biz.ID, orders.StatusShipped, 50000)
		_, err := svc.Settle(ctx, o.ID)
		assert.ErrorIs(t, err, settlement.ErrNotPayable)
	})

	t.Run("delivered but unpaid", func(t *testing.T) {
		o := seedSettleable(t, db, biz.ID, orders.StatusDelivered, 50000)
		require.NoError(t, db.Model(&orders.Order{}).Where("id = ?", o.ID).
			Update("payment_status", orders.PaymentPending).Error)
		_, err := svc.Settle(ctx, o.ID)
		assert.ErrorIs(t, err, settlement.ErrNotPayable)
	})

	t.Run("unconfirmed payment", func(t *testing.T) {
		o := seedSettleable(t, db, biz.ID, orders.StatusDelivered, 50000)
		require.NoError(t, db.Model(&payments.Payment{}).Where("order_id = ?", o.ID).
			Update("is_confirmed", false).Error)
		_, err := svc.Settle(ctx, o.ID)
		assert.ErrorIs(t, err, settlement.ErrNotPayable)
	})

	assert.Zero(t, walletBalance(t, db, biz.ID))
}

func TestDeliveredEventTriggersSettlement(t *testing.T) {
	db := testdb.Open(t)
	bus := notifications.NewBus(testdb.DiscardLogger())
	biz := testdb.SeedBusiness(t, db, "Vendor")
	svc := settlement.NewService(db, marketplace.NewManager(db, testDefaults), bus, testdb.DiscardLogger())
	bus.Subscribe(notifications.OrderDelivered{}.Name(), svc.DeliveredHandler())

	// drive the order to delivered through the lifecycle service
	o := seedSettleable(t, db, biz.ID, orders.StatusShipped, 100000)
	life := orders.NewLifecycleService(db, bus, testdb.DiscardLogger())
	require.NoError(t, life.Transition(context.Background(), orders.TransitionInput{
		OrderID: o.ID, ActorID: uuid.NewString(), Action: "deliver",
	}))

	assert.Equal(t, int64(87500), walletBalance(t, db, biz.ID))

	// a replayed delivery event settles nothing further
	bus.Publish(context.Background(), notifications.OrderDelivered{OrderID: o.ID, ActorID: uuid.NewString()})
	assert.Equal(t, int64(87500), walletBalance(t, db, biz.ID))
}
