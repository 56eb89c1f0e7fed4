package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallet is one money pot (tiền mặt, tài khoản ngân hàng, ví điện tử).
// Balance is kept in minor units; VND has none, so it is simply đồng.
// Wallets are never hard-deleted: transaction history keeps pointing at
// them, so removal only clears IsActive.
type Wallet struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    uint   `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	Currency  string `gorm:"size:8;default:VND"`
	Balance   int64
	Icon      string `gorm:"size:32"`
	Color     string `gorm:"size:16"`
	IsActive  bool   `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
