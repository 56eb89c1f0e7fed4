package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	WalletID   string
	CategoryID string
	Type       model.EntryType
	From       *time.Time
	To         *time.Time
	Limit      int
}

// Fingerprint renders the filter as a stable cache key fragment.
func (f TransactionFilter) Fingerprint() string {
	parts := []string{f.WalletID, f.CategoryID, string(f.Type)}
	if f.From != nil {
		parts = append(parts, "from="+timeutil.FormatISODate(*f.From))
	}
	if f.To != nil {
		parts = append(parts, "to="+timeutil.FormatISODate(*f.To))
	}
	return strings.Join(parts, "|")
}

// CategoryTotal is one row of a grouped month summary.
type CategoryTotal struct {
	CategoryID *string
	Type       model.EntryType
	Total      int64
}

// TransactionRepository records money movement. Every write that touches
// an amount also adjusts the owning wallet balance inside the same store
// transaction.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedActiveWallet(tx, txn.UserID, txn.WalletID); err != nil {
			return err
		}
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		return adjustBalance(tx, txn.WalletID, txn.Delta())
	})
	if err != nil {
		return apperr.FromDB("transactions.Create", "transaction", err)
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, userID uint, id string) (*model.Transaction, error) {
	var txn model.Transaction
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&txn).Error; err != nil {
		return nil, apperr.FromDB("transactions.Find", "transaction", err)
	}
	return &txn, nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID uint, f TransactionFilter) ([]model.Transaction, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if f.WalletID != "" {
		q = q.Where("wallet_id = ?", f.WalletID)
	}
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.From != nil {
		q = q.Where("occurred_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("occurred_at <= ?", *f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var txns []model.Transaction
	if err := q.Order("occurred_at DESC").Order("created_at DESC").Find(&txns).Error; err != nil {
		return nil, apperr.FromDB("transactions.List", "transaction", err)
	}
	return txns, nil
}

// Update replaces the mutable fields of a transaction. The old amount is
// backed out of the old wallet and the new amount applied to the new one,
// atomically.
func (r *TransactionRepository) Update(ctx context.Context, updated *model.Transaction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old model.Transaction
		if err := tx.Where("user_id = ? AND id = ?", updated.UserID, updated.ID).First(&old).Error; err != nil {
			return err
		}
		if err := ownedActiveWallet(tx, updated.UserID, updated.WalletID); err != nil {
			return err
		}
		if err := adjustBalance(tx, old.WalletID, -old.Delta()); err != nil {
			return err
		}
		if err := tx.Model(&old).Updates(map[string]interface{}{
			"wallet_id":   updated.WalletID,
			"category_id": updated.CategoryID,
			"type":        updated.Type,
			"amount":      updated.Amount,
			"note":        updated.Note,
			"occurred_at": updated.OccurredAt,
		}).Error; err != nil {
			return err
		}
		return adjustBalance(tx, updated.WalletID, updated.Delta())
	})
	if err != nil {
		return apperr.FromDB("transactions.Update", "transaction", err)
	}
	return nil
}

// Delete removes the row permanently and backs its amount out of the
// wallet balance.
func (r *TransactionRepository) Delete(ctx context.Context, userID uint, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn model.Transaction
		if err := tx.Where("user_id = ? AND id = ?", userID, id).First(&txn).Error; err != nil {
			return err
		}
		if err := adjustBalance(tx, txn.WalletID, -txn.Delta()); err != nil {
			return err
		}
		return tx.Delete(&txn).Error
	})
	if err != nil {
		return apperr.FromDB("transactions.Delete", "transaction", err)
	}
	return nil
}

// TotalsByType sums amounts per flow direction inside [from, to].
func (r *TransactionRepository) TotalsByType(ctx context.Context, userID uint, from, to time.Time) (map[model.EntryType]int64, error) {
	type row struct {
		Type  model.EntryType
		Total int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select("type, SUM(amount) AS total").
		Where("user_id = ? AND occurred_at BETWEEN ? AND ?", userID, from, to).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.FromDB("transactions.TotalsByType", "transaction", err)
	}
	totals := make(map[model.EntryType]int64, len(rows))
	for _, t := range rows {
		totals[t.Type] = t.Total
	}
	return totals, nil
}

// TotalsByCategory sums amounts per category and flow direction inside
// [from, to].
func (r *TransactionRepository) TotalsByCategory(ctx context.Context, userID uint, from, to time.Time) ([]CategoryTotal, error) {
	var rows []CategoryTotal
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select("category_id, type, SUM(amount) AS total").
		Where("user_id = ? AND occurred_at BETWEEN ? AND ?", userID, from, to).
		Group("category_id").Group("type").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.FromDB("transactions.TotalsByCategory", "transaction", err)
	}
	return rows, nil
}

func ownedActiveWallet(tx *gorm.DB, userID uint, walletID string) error {
	var wallet model.Wallet
	return tx.Where("user_id = ? AND id = ? AND is_active = ?", userID, walletID, true).First(&wallet).Error
}

func adjustBalance(tx *gorm.DB, walletID string, delta int64) error {
	return tx.Model(&model.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}
