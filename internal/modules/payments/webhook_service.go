package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/notifications"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/orders"
)

// STKCallback is the gateway's asynchronous push result. The endpoint is
// public and the gateway does not sign it, so every field is treated as
// untrusted input.
type STKCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	ReceiptCode       string
	AmountCents       int64
	Phone             string
}

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

var ErrMalformedCallback = errors.New("malformed stk callback")

// ParseSTKCallback defensively decodes a raw callback body.
func ParseSTKCallback(raw []byte) (STKCallback, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return STKCallback{}, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	sc := env.Body.StkCallback
	if sc.CheckoutRequestID == "" {
		return STKCallback{}, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}

	out := STKCallback{
		MerchantRequestID: sc.MerchantRequestID,
		CheckoutRequestID: sc.CheckoutRequestID,
		ResultCode:        sc.ResultCode,
		ResultDesc:        sc.ResultDesc,
	}
	if sc.CallbackMetadata != nil {
		for _, item := range sc.CallbackMetadata.Item {
			switch item.Name {
			case "MpesaReceiptNumber":
				if s, ok := item.Value.(string); ok {
					out.ReceiptCode = s
				}
			case "Amount":
				if f, ok := item.Value.(float64); ok {
					out.AmountCents = int64(f * 100)
				}
			case "PhoneNumber":
				switch v := item.Value.(type) {
				case string:
					out.Phone = v
				case float64:
					out.Phone = fmt.Sprintf("%.0f", v)
				}
			}
		}
	}
	return out, nil
}

// WebhookService reconciles gateway callbacks with pending orders. The
// gateway retries and may deliver out of order, so every transition here is
// a guarded conditional update: a duplicate or late callback finds zero
// matching rows and becomes a no-op.
type WebhookService struct {
	db     *gorm.DB
	bus    *notifications.Bus
	logger *slog.Logger
}

func NewWebhookService(db *gorm.DB, bus *notifications.Bus, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{db: db, bus: bus, logger: logger}
}

// HandleSTKCallback processes one delivery. The returned error is for logs
// only; the HTTP handler acks the gateway regardless, to stop retry storms,
// and gaps are caught by the pending sweep.
func (s *WebhookService) HandleSTKCallback(ctx context.Context, raw []byte) error {
	cb, err := ParseSTKCallback(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding malformed callback", "err", err)
		return err
	}

	ev := GatewayEvent{
		ID:            uuid.NewString(),
		CorrelationID: cb.CheckoutRequestID,
		ResultCode:    cb.ResultCode,
		ResultDesc:    cb.ResultDesc,
		PayloadJSON:   datatypes.JSON(raw),
		ReceivedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		s.logger.ErrorContext(ctx, "failed to persist gateway event", "correlation_id", cb.CheckoutRequestID, "err", err)
		return err
	}

	var confirmed, failed []orders.Order
	applyErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var matched []orders.Order
		if err := tx.WithContext(ctx).Find(&matched, "correlation_token = ?", cb.CheckoutRequestID).Error; err != nil {
			return err
		}
		if len(matched) == 0 {
			// unknown or already re-correlated: ack and move on
			s.logger.InfoContext(ctx, "callback matched no orders", "correlation_id", cb.CheckoutRequestID, "result_code", cb.ResultCode)
			return nil
		}

		now := time.Now()
		for _, o := range matched {
			if cb.ResultCode == 0 {
				transitioned, err := s.applySuccessInTx(ctx, tx, o, cb, now)
				if err != nil {
					return err
				}
				if transitioned {
					confirmed = append(confirmed, o)
				}
			} else {
				transitioned, err := s.applyFailureInTx(ctx, tx, o, cb, now)
				if err != nil {
					return err
				}
				if transitioned {
					failed = append(failed, o)
				}
			}
		}
		return nil
	})

	s.finishEvent(ctx, ev.ID, applyErr)
	if applyErr != nil {
		s.logger.ErrorContext(ctx, "callback apply failed", "correlation_id", cb.CheckoutRequestID, "err", applyErr)
		return applyErr
	}

	// notifications only for orders that actually transitioned; a replayed
	// callback dispatches nothing
	for _, o := range confirmed {
		s.bus.Publish(ctx, notifications.OrderConfirmed{OrderID: o.ID, OrderNumber: o.OrderNumber, ReceiptCode: cb.ReceiptCode})
	}
	for _, o := range failed {
		s.bus.Publish(ctx, notifications.PaymentFailed{OrderID: o.ID, OrderNumber: o.OrderNumber, Reason: cb.ResultDesc})
	}

	s.logger.InfoContext(ctx, "callback processed",
		"correlation_id", cb.CheckoutRequestID,
		"result_code", cb.ResultCode,
		"confirmed", len(confirmed),
		"failed", len(failed),
	)
	return nil
}

// applySuccessInTx marks one order paid. The payment_status guard is the
// idempotency check: a duplicate success callback affects zero rows.
func (s *WebhookService) applySuccessInTx(ctx context.Context, tx *gorm.DB, o orders.Order, cb STKCallback, now time.Time) (bool, error) {
	res := tx.WithContext(ctx).Model(&orders.Order{}).
		Where("id = ? AND payment_status = ?", o.ID, orders.PaymentPending).
		Updates(map[string]any{
			"payment_status": orders.PaymentPaid,
			"paid_at":        now,
			"updated_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil // duplicate callback
	}

	// advance the order itself, if nothing moved it yet
	if err := tx.WithContext(ctx).Model(&orders.Order{}).
		Where("id = ? AND status = ?", o.ID, orders.StatusPending).
		Updates(map[string]any{"status": orders.StatusConfirmed, "updated_at": now}).Error; err != nil {
		return false, err
	}

	updates := map[string]any{"is_confirmed": true, "updated_at": now}
	if cb.ReceiptCode != "" {
		updates["receipt_code"] = cb.ReceiptCode
	}
	if err := tx.WithContext(ctx).Model(&Payment{}).
		Where("order_id = ? AND is_confirmed = ?", o.ID, false).
		Updates(updates).Error; err != nil {
		return false, err
	}
	return true, nil
}

// applyFailureInTx marks a still-pending order failed. Orders already paid
// are never downgraded: a late failure callback after a success is a no-op.
func (s *WebhookService) applyFailureInTx(ctx context.Context, tx *gorm.DB, o orders.Order, cb STKCallback, now time.Time) (bool, error) {
	res := tx.WithContext(ctx).Model(&orders.Order{}).
		Where("id = ? AND payment_status = ?", o.ID, orders.PaymentPending).
		Updates(map[string]any{
			"payment_status": orders.PaymentFailed,
			"updated_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	reason := truncate(cb.ResultDesc, 250)
	if err := tx.WithContext(ctx).Model(&Payment{}).
		Where("order_id = ? AND is_confirmed = ?", o.ID, false).
		Updates(map[string]any{"failure_reason": reason, "updated_at": now}).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (s *WebhookService) finishEvent(ctx context.Context, eventID string, applyErr error) {
	updates := map[string]any{}
	if applyErr != nil {
		updates["process_error"] = truncate(applyErr.Error(), 250)
	} else {
		updates["processed_at"] = time.Now()
	}
	if err := s.db.WithContext(ctx).Model(&GatewayEvent{}).
		Where("id = ?", eventID).
		Updates(updates).Error; err != nil {
		s.logger.ErrorContext(ctx, "failed to finalize gateway event", "event_id", eventID, "err", err)
	}
}

// PendingSweep fails push payments that have been pending longer than
// maxAge. The operational backstop for callbacks that never arrived.
func (s *WebhookService) PendingSweep(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)

	var stuck []orders.Order
	if err := s.db.WithContext(ctx).
		Find(&stuck, "payment_method = ? AND payment_status = ? AND correlation_token IS NOT NULL AND updated_at < ?",
			MethodMpesa, orders.PaymentPending, cutoff).Error; err != nil {
		return 0, err
	}

	var swept int64
	for _, o := range stuck {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			transitioned, err := s.applyFailureInTx(ctx, tx, o, STKCallback{ResultDesc: "timed out waiting for gateway callback"}, time.Now())
			if err != nil {
				return err
			}
			if transitioned {
				swept++
			}
			return nil
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep failed for order", "order_id", o.ID, "err", err)
		}
	}

	if swept > 0 {
		s.logger.InfoContext(ctx, "pending payment sweep", "swept", swept, "cutoff", cutoff)
	}
	return swept, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
