package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/business"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/marketplace"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/notifications"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/dbx"
)

// Service releases a confirmed payment's vendor share once the order is
// delivered. Settle is idempotent three ways: the is_settled check, the
// guarded is_settled flip, and the unique settlement index. Re-invocation
// is always a safe no-op.
type Service struct {
	db       *gorm.DB
	settings *marketplace.Manager
	bus      *notifications.Bus
	logger   *slog.Logger
}

func NewService(db *gorm.DB, settings *marketplace.Manager, bus *notifications.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, settings: settings, bus: bus, logger: logger}
}

func (s *Service) Settle(ctx context.Context, orderID string) (Settlement, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return Settlement{}, err
	}

	var created Settlement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o orders.Order
		if err := tx.WithContext(ctx).First(&o, "id = ?", orderID).Error; err != nil {
			return err
		}
		if o.Status != orders.StatusDelivered || o.PaymentStatus != orders.PaymentPaid {
			return ErrNotPayable
		}

		var p payments.Payment
		if err := tx.WithContext(ctx).First(&p, "order_id = ?", o.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotPayable
			}
			return err
		}
		if !p.IsConfirmed {
			return ErrNotPayable
		}
		if p.IsSettled {
			return ErrAlreadySettled
		}

		bd := Calculate(p.AmountCents, cfg.CommissionRate(), cfg.ProcessingRate())

		now := time.Now()
		created = Settlement{
			ID:                 uuid.NewString(),
			PaymentID:          p.ID,
			BusinessID:         o.BusinessID,
			OrderID:            o.ID,
			AmountCents:        bd.TotalCents,
			PlatformFeeCents:   bd.PlatformFeeCents,
			ProcessingFeeCents: bd.ProcessingFeeCents,
			NetAmountCents:     bd.VendorPayoutCents,
			Currency:           p.Currency,
			SettledAt:          now,
		}
		if err := tx.WithContext(ctx).Create(&created).Error; err != nil {
			if dbx.IsDuplicate(err) {
				return ErrAlreadySettled
			}
			return err
		}

		// guarded flip closes the race between two concurrent settles
		res := tx.WithContext(ctx).Model(&payments.Payment{}).
			Where("id = ? AND is_settled = ?", p.ID, false).
			Updates(map[string]any{"is_settled": true, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrAlreadySettled
		}

		return business.CreditWalletInTx(ctx, tx, o.BusinessID, bd.VendorPayoutCents)
	})
	if err != nil {
		return Settlement{}, err
	}

	s.logger.InfoContext(ctx, "settlement released",
		"settlement_id", created.ID,
		"order_id", created.OrderID,
		"business_id", created.BusinessID,
		"net_cents", created.NetAmountCents,
	)
	s.bus.Publish(ctx, notifications.SettlementReleased{
		SettlementID: created.ID,
		OrderID:      created.OrderID,
		BusinessID:   created.BusinessID,
		NetCents:     created.NetAmountCents,
	})
	return created, nil
}

// DeliveredHandler wires Settle to the order-delivered event. AlreadySettled
// from a replayed event is absorbed; other failures are logged for the
// reconciliation sweep to find.
func (s *Service) DeliveredHandler() notifications.Handler {
	return func(ctx context.Context, ev notifications.Event) error {
		d, ok := ev.(notifications.OrderDelivered)
		if !ok {
			return nil
		}
		_, err := s.Settle(ctx, d.OrderID)
		if errors.Is(err, ErrAlreadySettled) || errors.Is(err, ErrNotPayable) {
			s.logger.InfoContext(ctx, "delivery event not settled", "order_id", d.OrderID, "reason", err)
			return nil
		}
		return err
	}
}
