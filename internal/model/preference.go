package model

import "time"

// Well-known preference keys. Values are stored as plain strings and
// interpreted by the service layer.
const (
	PrefDefaultWallet   = "default_wallet"
	PrefDefaultCurrency = "default_currency"
	PrefAgendaTime      = "agenda_time"
	PrefNotifyEnabled   = "notify_enabled"
	PrefTaskPeriod      = "task_period"
)

// Preference is a per-user key/value setting row.
type Preference struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index:idx_user_pref,unique;not null"`
	Key       string `gorm:"index:idx_user_pref,unique;size:64;not null"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
