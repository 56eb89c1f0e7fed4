package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category labels money movement (ăn uống, lương, hóa đơn, …), split by
// direction so income and expense keep separate namespaces.
type Category struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint      `gorm:"index:idx_user_category,unique"`
	Name      string    `gorm:"index:idx_user_category,unique"`
	Type      EntryType `gorm:"size:8;index:idx_user_category,unique"`
	Icon      string    `gorm:"size:32"`
	Color     string    `gorm:"size:16"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
