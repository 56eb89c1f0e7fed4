package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

// ReminderStatus is the lifecycle state of a reminder occurrence.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderCompleted ReminderStatus = "completed"
	ReminderSkipped   ReminderStatus = "skipped"
)

// RepeatCadence describes how a reminder recurs after its first date.
type RepeatCadence string

const (
	RepeatNone    RepeatCadence = "none"
	RepeatDaily   RepeatCadence = "daily"
	RepeatWeekly  RepeatCadence = "weekly"
	RepeatMonthly RepeatCadence = "monthly"
	RepeatYearly  RepeatCadence = "yearly"
)

// Valid reports whether c is a known cadence.
func (c RepeatCadence) Valid() bool {
	switch c {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

// Reminder doubles as the storage for plans and plain notes: a reminder
// without any financial fields is displayed as a note. Deleting one only
// flips IsActive so history survives.
type Reminder struct {
	ID             string    `gorm:"primaryKey;size:36"`
	UserID         uint      `gorm:"index;not null"`
	Title          string    `gorm:"not null"`
	Type           EntryType `gorm:"size:8"`
	Amount         *int64
	CategoryID     *string        `gorm:"size:36;index"`
	WalletID       *string        `gorm:"size:36;index"`
	Icon           string         `gorm:"size:32"`
	ReminderDate   time.Time      `gorm:"index;not null"`
	ReminderTime   string         `gorm:"size:5"`
	Repeat         RepeatCadence  `gorm:"size:16;default:none"`
	Status         ReminderStatus `gorm:"size:16;index;default:pending"`
	Notes          string
	Color          string `gorm:"size:16"`
	NotifyEnabled  bool
	IsActive       bool `gorm:"index"`
	LastNotifiedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *Reminder) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsNote classifies a reminder with no amount, category and wallet as a
// plain note. The source data carries no explicit discriminator, so a
// reminder legitimately created without financial fields is
// indistinguishable from a note; this heuristic is the documented
// convention, not a schema fact.
func (r Reminder) IsNote() bool {
	return r.Amount == nil && r.CategoryID == nil && r.WalletID == nil
}

// OccursOn reports whether the reminder has an occurrence on the given
// UTC+7 civil day. Monthly cadences clamp day 29–31 to the last day of
// shorter months; yearly clamps Feb 29 to Feb 28 off leap years.
func (r Reminder) OccursOn(day time.Time) bool {
	day = timeutil.StartOfDay(day)
	anchor := timeutil.StartOfDay(r.ReminderDate)
	if day.Before(anchor) {
		return false
	}
	switch r.Repeat {
	case RepeatDaily:
		return true
	case RepeatWeekly:
		return day.Weekday() == anchor.Weekday()
	case RepeatMonthly:
		want := anchor.Day()
		if last := timeutil.DaysInMonth(day); want > last {
			want = last
		}
		return day.Day() == want
	case RepeatYearly:
		if day.Month() != anchor.Month() {
			return false
		}
		want := anchor.Day()
		if last := timeutil.DaysInMonth(day); want > last {
			want = last
		}
		return day.Day() == want
	default:
		return day.Equal(anchor)
	}
}

// DueAt pins the reminder's occurrence on day to its HH:MM wall time,
// midnight when no time was set.
func (r Reminder) DueAt(day time.Time) time.Time {
	start := timeutil.StartOfDay(day)
	if len(r.ReminderTime) != 5 {
		return start
	}
	t, err := time.Parse("15:04", r.ReminderTime)
	if err != nil {
		return start
	}
	return start.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}
