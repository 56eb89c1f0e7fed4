package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction records one money movement against a wallet. Amount is
// always positive; Type carries the direction.
type Transaction struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     uint      `gorm:"index;not null"`
	WalletID   string    `gorm:"size:36;index;not null"`
	CategoryID *string   `gorm:"size:36;index"`
	Type       EntryType `gorm:"size:8;index;not null"`
	Amount     int64     `gorm:"not null"`
	Note       string
	OccurredAt time.Time `gorm:"index;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Delta is the signed effect of this transaction on its wallet balance.
func (t Transaction) Delta() int64 {
	return t.Type.Sign() * t.Amount
}
