package inventory

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/catalog"
)

type Line struct {
	ProductID string
	Qty       int
}

// ReserveInTx decrements stock for every line inside the caller's
// transaction. Each decrement is a single conditional UPDATE guarded by
// `stock_qty >= qty`, so two concurrent checkouts can never drive a counter
// negative; there is no read-check-write window. The first line that cannot
// be satisfied fails the whole call and the caller's rollback undoes the
// decrements already applied.
//
// A successful reservation also bumps the product's sales counter.
func ReserveInTx(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}

	want := make(map[string]int, len(lines))
	for _, ln := range lines {
		q := ln.Qty
		if q < 1 {
			q = 1
		}
		want[ln.ProductID] += q
	}

	// deterministic order so concurrent reservations cannot deadlock
	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		req := want[id]
		res := tx.WithContext(ctx).Model(&catalog.Product{}).
			Where("id = ? AND is_active = ? AND stock_qty >= ?", id, true, req).
			Updates(map[string]any{
				"stock_qty":   gorm.Expr("stock_qty - ?", req),
				"sales_count": gorm.Expr("sales_count + ?", req),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			var avail int
			_ = tx.WithContext(ctx).Model(&catalog.Product{}).
				Where("id = ?", id).
				Pluck("stock_qty", &avail).Error
			return &OutOfStockError{Items: []OutOfStockItem{{ProductID: id, Requested: req, Available: avail}}}
		}
	}

	return nil
}

// ReleaseInTx adds reserved quantities back (cancellation of an unpaid
// order). Sales counters are rolled back with the stock.
func ReleaseInTx(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, ln := range lines {
		if ln.Qty < 1 {
			continue
		}
		if err := tx.WithContext(ctx).Model(&catalog.Product{}).
			Where("id = ?", ln.ProductID).
			Updates(map[string]any{
				"stock_qty":   gorm.Expr("stock_qty + ?", ln.Qty),
				"sales_count": gorm.Expr("sales_count - ?", ln.Qty),
			}).Error; err != nil {
			return err
		}
	}
	return nil
}
