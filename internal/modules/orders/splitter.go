package orders

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/business"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/catalog"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/inventory"
	"github.com/57nyambu/dima-backend-sub000/internal/modules/notifications"
	"github.com/57nyambu/dima-backend-sub000/internal/shared/dbx"
)

const numberAttempts = 5

type CartLine struct {
	ProductID string
	Quantity  int
}

type CheckoutInput struct {
	BuyerID       string
	Lines         []CartLine
	PaymentMethod string
	ShippingJSON  []byte
}

type CreatedOrder struct {
	Order        Order
	BusinessName string
	Items        []OrderItem
}

type VendorFailure struct {
	BusinessID   string
	BusinessName string
	Reason       string
	OutOfStock   []inventory.OutOfStockItem
}

type CheckoutResult struct {
	Orders   []CreatedOrder
	Failures []VendorFailure
}

// Splitter partitions a buyer's cart into one order per vendor. Vendor
// groups succeed or fail independently: a stock shortage rolls back that
// vendor's order only, and the other vendors' orders stand.
type Splitter struct {
	db         *gorm.DB
	catalog    *catalog.Repo
	businesses *business.Repo
	bus        *notifications.Bus
	logger     *slog.Logger
}

func NewSplitter(db *gorm.DB, cat *catalog.Repo, biz *business.Repo, bus *notifications.Bus, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{db: db, catalog: cat, businesses: biz, bus: bus, logger: logger}
}

func (s *Splitter) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	if len(in.Lines) == 0 {
		return CheckoutResult{}, ErrCartEmpty
	}

	ids := make([]string, 0, len(in.Lines))
	for _, ln := range in.Lines {
		if ln.Quantity < 1 {
			return CheckoutResult{}, ErrProductUnavailable
		}
		ids = append(ids, ln.ProductID)
	}

	products, err := s.catalog.ListActiveByIDs(ctx, ids)
	if err != nil {
		return CheckoutResult{}, err
	}
	for _, ln := range in.Lines {
		if _, ok := products[ln.ProductID]; !ok {
			return CheckoutResult{}, ErrProductUnavailable
		}
	}

	// group lines by owning vendor
	groups := make(map[string][]CartLine)
	for _, ln := range in.Lines {
		bid := products[ln.ProductID].BusinessID
		groups[bid] = append(groups[bid], ln)
	}
	bizIDs := make([]string, 0, len(groups))
	for bid := range groups {
		bizIDs = append(bizIDs, bid)
	}
	sort.Strings(bizIDs)

	names, err := s.businesses.ListByIDs(ctx, bizIDs)
	if err != nil {
		return CheckoutResult{}, err
	}

	var out CheckoutResult
	for _, bid := range bizIDs {
		created, err := s.createVendorOrder(ctx, in, bid, groups[bid], products)
		if err != nil {
			failure := VendorFailure{BusinessID: bid, BusinessName: names[bid].Name}
			var oos *inventory.OutOfStockError
			switch {
			case errors.As(err, &oos):
				failure.Reason = "insufficient_stock"
				failure.OutOfStock = oos.Items
			case errors.Is(err, ErrCurrencyMismatch):
				failure.Reason = "currency_mismatch"
			default:
				s.logger.ErrorContext(ctx, "vendor order failed", "business_id", bid, "err", err)
				failure.Reason = "internal"
			}
			out.Failures = append(out.Failures, failure)
			continue
		}
		created.BusinessName = names[bid].Name
		out.Orders = append(out.Orders, created)

		s.bus.Publish(ctx, notifications.OrderPlaced{
			OrderID:     created.Order.ID,
			OrderNumber: created.Order.OrderNumber,
			BuyerID:     created.Order.BuyerID,
			BusinessID:  created.Order.BusinessID,
			TotalCents:  created.Order.TotalCents,
			Currency:    created.Order.Currency,
		})
	}

	return out, nil
}

// createVendorOrder reserves stock and writes the order plus its items in
// one transaction. Stock is committed as soon as this transaction commits;
// payment comes later.
func (s *Splitter) createVendorOrder(ctx context.Context, in CheckoutInput, businessID string, lines []CartLine, products map[string]catalog.Product) (CreatedOrder, error) {
	currency := products[lines[0].ProductID].Currency
	var total int64
	resLines := make([]inventory.Line, 0, len(lines))
	for _, ln := range lines {
		p := products[ln.ProductID]
		if p.Currency != currency {
			return CreatedOrder{}, ErrCurrencyMismatch
		}
		total += p.PriceCents * int64(ln.Quantity)
		resLines = append(resLines, inventory.Line{ProductID: ln.ProductID, Qty: ln.Quantity})
	}

	var created CreatedOrder
	var lastErr error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		now := time.Now()
		o := Order{
			ID:            uuid.NewString(),
			OrderNumber:   NewOrderNumber(now),
			BuyerID:       in.BuyerID,
			BusinessID:    businessID,
			Status:        StatusPending,
			PaymentStatus: PaymentPending,
			TotalCents:    total,
			Currency:      currency,
			PaymentMethod: in.PaymentMethod,
			ShippingJSON:  datatypes.JSON(in.ShippingJSON),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		items := make([]OrderItem, 0, len(lines))
		for _, ln := range lines {
			items = append(items, OrderItem{
				ID:         uuid.NewString(),
				OrderID:    o.ID,
				ProductID:  ln.ProductID,
				Quantity:   ln.Quantity,
				PriceCents: products[ln.ProductID].PriceCents,
				CreatedAt:  now,
			})
		}

		err := dbx.WithTxRetry(ctx, s.db, 3, func(tx *gorm.DB) error {
			if err := inventory.ReserveInTx(ctx, tx, resLines); err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Create(&o).Error; err != nil {
				return err
			}
			return tx.WithContext(ctx).Create(&items).Error
		})
		if err == nil {
			created = CreatedOrder{Order: o, Items: items}
			return created, nil
		}
		lastErr = err
		if dbx.IsDuplicate(err) {
			// order-number collision: everything rolled back, regenerate
			continue
		}
		return CreatedOrder{}, err
	}
	if lastErr != nil && dbx.IsDuplicate(lastErr) {
		return CreatedOrder{}, ErrNumberCollision
	}
	return CreatedOrder{}, lastErr
}
