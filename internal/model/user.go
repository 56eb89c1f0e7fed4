package model

import "time"

// User stores the Telegram identity every session resolves to. All other
// records in the app hang off one of these rows.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName picks the friendliest non-empty name for messages.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "bạn"
}
