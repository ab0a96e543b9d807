package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments/daraja"
)

// Pusher is the slice of the gateway client the initiator needs.
type Pusher interface {
	STKPush(ctx context.Context, req daraja.STKPushRequest) (daraja.STKPushResponse, error)
}

// Service initiates payments. One buyer checkout session gets one gateway
// push covering every order in the set; the returned CheckoutRequestID is
// persisted on all of them before the caller hears "sent".
type Service struct {
	db     *gorm.DB
	pusher Pusher
	logger *slog.Logger
}

func NewService(db *gorm.DB, pusher Pusher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, pusher: pusher, logger: logger}
}

type InitiatePushInput struct {
	BuyerID  string
	OrderIDs []string
	Phone    string
}

type InitiatePushResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
	TotalCents        int64
	Phone             string
}

// InitiatePush sends one STK push for the given orders. On any gateway
// failure the orders are left untouched: still pending, still payable.
func (s *Service) InitiatePush(ctx context.Context, in InitiatePushInput) (InitiatePushResult, error) {
	phone, err := daraja.NormalizePhone(in.Phone)
	if err != nil {
		return InitiatePushResult{}, err
	}

	set, total, err := s.loadPayable(ctx, in.BuyerID, in.OrderIDs)
	if err != nil {
		return InitiatePushResult{}, err
	}

	// Amounts below one shilling cannot be pushed.
	if total < 100 {
		return InitiatePushResult{}, ErrOrderNotPayable
	}

	resp, err := s.pusher.STKPush(ctx, daraja.STKPushRequest{
		Phone:            phone,
		AmountCents:      total,
		AccountReference: set[0].OrderNumber,
		Description:      fmt.Sprintf("Payment for %d order(s)", len(set)),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "stk push failed", "buyer_id", in.BuyerID, "orders", len(set), "err", err)
		return InitiatePushResult{}, err
	}

	// Persist the correlation against every order before reporting success;
	// the callback reconciler finds the orders through this token.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, o := range set {
			if err := upsertPaymentInTx(ctx, tx, o, MethodMpesa, &phone, &resp.CheckoutRequestID, now); err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Model(&orders.Order{}).
				Where("id = ?", o.ID).
				Updates(map[string]any{
					"correlation_token": resp.CheckoutRequestID,
					"payment_method":    MethodMpesa,
					"updated_at":        now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return InitiatePushResult{}, err
	}

	s.logger.InfoContext(ctx, "stk push sent",
		"checkout_request_id", resp.CheckoutRequestID,
		"orders", len(set),
		"total_cents", total,
	)

	return InitiatePushResult{
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CustomerMessage:   resp.CustomerMessage,
		TotalCents:        total,
		Phone:             phone,
	}, nil
}

// RecordOffline records cod/card payments, which carry no gateway leg.
// Mirrors the legacy behavior: they are confirmed at creation and settle
// after delivery like any other confirmed payment.
func (s *Service) RecordOffline(ctx context.Context, buyerID string, orderIDs []string, method string) error {
	if method != MethodCOD && method != MethodCard {
		return fmt.Errorf("unsupported offline method %q", method)
	}
	set, _, err := s.loadPayable(ctx, buyerID, orderIDs)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, o := range set {
			if err := upsertPaymentInTx(ctx, tx, o, method, nil, nil, now); err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Model(&Payment{}).
				Where("order_id = ?", o.ID).
				Updates(map[string]any{"is_confirmed": true, "updated_at": now}).Error; err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Model(&orders.Order{}).
				Where("id = ? AND payment_status = ?", o.ID, orders.PaymentPending).
				Updates(map[string]any{
					"payment_status": orders.PaymentPaid,
					"payment_method": method,
					"paid_at":        now,
					"updated_at":     now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) loadPayable(ctx context.Context, buyerID string, orderIDs []string) ([]orders.Order, int64, error) {
	if len(orderIDs) == 0 {
		return nil, 0, ErrNoOrders
	}

	var set []orders.Order
	if err := s.db.WithContext(ctx).Find(&set, "id IN ?", orderIDs).Error; err != nil {
		return nil, 0, err
	}
	if len(set) != len(orderIDs) {
		return nil, 0, ErrOrderNotPayable
	}

	var total int64
	for _, o := range set {
		if o.BuyerID != buyerID {
			return nil, 0, ErrForbidden
		}
		if o.Status == orders.StatusCancelled || o.PaymentStatus != orders.PaymentPending {
			return nil, 0, ErrOrderNotPayable
		}
		total += o.TotalCents
	}
	return set, total, nil
}

// upsertPaymentInTx creates the per-order payment row, or refreshes it when
// the buyer re-initiates after a failed push (new correlation, same order).
func upsertPaymentInTx(ctx context.Context, tx *gorm.DB, o orders.Order, method string, phone, correlationID *string, now time.Time) error {
	var existing Payment
	err := tx.WithContext(ctx).First(&existing, "order_id = ?", o.ID).Error
	if err == nil {
		if existing.IsConfirmed {
			return ErrOrderNotPayable
		}
		return tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ? AND is_confirmed = ?", existing.ID, false).
			Updates(map[string]any{
				"method":         method,
				"amount_cents":   o.TotalCents,
				"phone_e164":     phone,
				"correlation_id": correlationID,
				"failure_reason": nil,
				"updated_at":     now,
			}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	p := Payment{
		ID:            uuid.NewString(),
		OrderID:       o.ID,
		Method:        method,
		AmountCents:   o.TotalCents,
		Currency:      o.Currency,
		PhoneE164:     phone,
		CorrelationID: correlationID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return tx.WithContext(ctx).Create(&p).Error
}
