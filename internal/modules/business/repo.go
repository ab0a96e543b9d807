package business

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrWalletNotFound = errors.New("wallet not found")

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, id string) (Business, error) {
	var b Business
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	return b, err
}

func (r *Repo) ListByIDs(ctx context.Context, ids []string) (map[string]Business, error) {
	if len(ids) == 0 {
		return map[string]Business{}, nil
	}
	var rows []Business
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]Business, len(rows))
	for _, b := range rows {
		out[b.ID] = b
	}
	return out, nil
}

// CreditWalletInTx adds amountCents to the vendor's balance as a single
// increment. Runs inside the caller's transaction.
func CreditWalletInTx(ctx context.Context, tx *gorm.DB, businessID string, amountCents int64) error {
	res := tx.WithContext(ctx).Model(&Wallet{}).
		Where("business_id = ?", businessID).
		Updates(map[string]any{
			"balance_cents": gorm.Expr("balance_cents + ?", amountCents),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrWalletNotFound
	}
	return nil
}
