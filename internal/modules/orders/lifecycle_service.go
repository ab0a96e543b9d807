package orders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/inventory"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/notifications"
)

// LifecycleService applies audited status transitions. Delivery and
// cancellation are the interesting ones: delivery publishes the event the
// settlement service listens for, cancellation of an unpaid order puts the
// reserved stock back.
type LifecycleService struct {
	db     *gorm.DB
	bus    *notifications.Bus
	logger *slog.Logger
}

func NewLifecycleService(db *gorm.DB, bus *notifications.Bus, logger *slog.Logger) *LifecycleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleService{db: db, bus: bus, logger: logger}
}

type TransitionInput struct {
	OrderID string
	ActorID string
	Action  string // confirm|ship|deliver|cancel
	Note    string
}

func (s *LifecycleService) Transition(ctx context.Context, in TransitionInput) error {
	if in.OrderID == "" || in.ActorID == "" || in.Action == "" {
		return ErrNotActionable
	}

	var delivered bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.WithContext(ctx).First(&o, "id = ?", in.OrderID).Error; err != nil {
			return err
		}

		from := o.Status
		to, err := nextStatus(from, in.Action)
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]any{
			"status":     to,
			"updated_at": now,
		}
		if to == StatusDelivered {
			updates["delivered_at"] = now
		}

		// optimistic guard: another request may have moved the order first
		res := tx.WithContext(ctx).
			Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidTransition
		}

		if to == StatusCancelled && o.PaymentStatus != PaymentPaid {
			var items []OrderItem
			if err := tx.WithContext(ctx).Find(&items, "order_id = ?", o.ID).Error; err != nil {
				return err
			}
			lines := make([]inventory.Line, 0, len(items))
			for _, it := range items {
				lines = append(lines, inventory.Line{ProductID: it.ProductID, Qty: it.Quantity})
			}
			if err := inventory.ReleaseInTx(ctx, tx, lines); err != nil {
				return err
			}
		}

		var notePtr *string
		if n := strings.TrimSpace(in.Note); n != "" {
			notePtr = &n
		}
		ev := OrderEvent{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			ActorID:    in.ActorID,
			Action:     in.Action,
			FromStatus: from,
			ToStatus:   to,
			Note:       notePtr,
			CreatedAt:  now,
		}
		if err := tx.WithContext(ctx).Create(&ev).Error; err != nil {
			return err
		}

		delivered = to == StatusDelivered
		return nil
	})
	if err != nil {
		return err
	}

	if delivered {
		s.bus.Publish(ctx, notifications.OrderDelivered{OrderID: in.OrderID, ActorID: in.ActorID})
	}
	return nil
}

func nextStatus(from, action string) (string, error) {
	switch action {
	case "confirm":
		if from == StatusPending {
			return StatusConfirmed, nil
		}
		return "", ErrInvalidTransition
	case "ship":
		if from == StatusConfirmed {
			return StatusShipped, nil
		}
		return "", ErrInvalidTransition
	case "deliver":
		if from == StatusShipped {
			return StatusDelivered, nil
		}
		return "", ErrInvalidTransition
	case "cancel":
		if from == StatusPending || from == StatusConfirmed {
			return StatusCancelled, nil
		}
		return "", ErrInvalidTransition
	default:
		return "", ErrInvalidTransition
	}
}
