package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/model"
)

// DefaultWalletName is created on first use when a user has no wallet yet.
const DefaultWalletName = "Ví chính"

// WalletRepository manages money pots.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, wallet *model.Wallet) error {
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return apperr.FromDB("wallets.Create", "wallet", err)
	}
	return nil
}

func (r *WalletRepository) ListByUser(ctx context.Context, userID uint, includeInactive bool) ([]model.Wallet, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}

	var wallets []model.Wallet
	if err := q.Order("created_at ASC").Find(&wallets).Error; err != nil {
		return nil, apperr.FromDB("wallets.List", "wallet", err)
	}
	return wallets, nil
}

func (r *WalletRepository) FindByID(ctx context.Context, userID uint, id string) (*model.Wallet, error) {
	var wallet model.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&wallet).Error; err != nil {
		return nil, apperr.FromDB("wallets.Find", "wallet", err)
	}
	return &wallet, nil
}

// GetOrCreateDefault returns the user's oldest active wallet, creating
// one when none exists yet.
func (r *WalletRepository) GetOrCreateDefault(ctx context.Context, userID uint) (*model.Wallet, error) {
	var wallet model.Wallet
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND is_active = ?", userID, true).Order("created_at ASC").First(&wallet).Error
	switch {
	case err == nil:
		return &wallet, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		wallet = model.Wallet{UserID: userID, Name: DefaultWalletName, Currency: "VND", IsActive: true}
		if err := db.Create(&wallet).Error; err != nil {
			return nil, apperr.FromDB("wallets.GetOrCreateDefault", "wallet", err)
		}
		return &wallet, nil
	default:
		return nil, apperr.FromDB("wallets.GetOrCreateDefault", "wallet", err)
	}
}

func (r *WalletRepository) Update(ctx context.Context, userID uint, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)
	if res.Error != nil {
		return apperr.FromDB("wallets.Update", "wallet", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E("wallets.Update", "wallet", apperr.ErrNotFound)
	}
	return nil
}

// Deactivate hides the wallet. Rows are never dropped because
// transactions keep pointing at them.
func (r *WalletRepository) Deactivate(ctx context.Context, userID uint, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ? AND id = ? AND is_active = ?", userID, id, true).
		Update("is_active", false)
	if res.Error != nil {
		return apperr.FromDB("wallets.Deactivate", "wallet", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E("wallets.Deactivate", "wallet", apperr.ErrNotFound)
	}
	return nil
}
