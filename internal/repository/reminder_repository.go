package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/model"
)

// ReminderFilter narrows reminder listings. Inactive rows stay hidden
// unless IncludeInactive is set.
type ReminderFilter struct {
	Type            model.EntryType
	Status          model.ReminderStatus
	IncludeInactive bool
}

// Fingerprint renders the filter as a stable cache key fragment.
func (f ReminderFilter) Fingerprint() string {
	parts := []string{string(f.Type), string(f.Status)}
	if f.IncludeInactive {
		parts = append(parts, "all")
	}
	return strings.Join(parts, "|")
}

// ReminderRepository handles CRUD for reminders and notes.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return apperr.FromDB("reminders.Create", "reminder", err)
	}
	return nil
}

func (r *ReminderRepository) ListByUser(ctx context.Context, userID uint, f ReminderFilter) ([]model.Reminder, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var reminders []model.Reminder
	err := q.Order("reminder_date ASC").
		Order("reminder_time ASC").
		Order("created_at DESC").
		Find(&reminders).Error
	if err != nil {
		return nil, apperr.FromDB("reminders.List", "reminder", err)
	}
	return reminders, nil
}

// ListCandidatesForRange returns active reminders that could occur inside
// [from, to]: one-offs anchored in the window plus every repeating
// reminder anchored before its end. Cadence expansion happens in the
// service, where the calendar rules live.
func (r *ReminderRepository) ListCandidatesForRange(ctx context.Context, userID uint, from, to time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Where("reminder_date <= ?", to).
		Where("(repeat <> ? OR reminder_date >= ?)", model.RepeatNone, from).
		Order("reminder_date ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, apperr.FromDB("reminders.ListCandidates", "reminder", err)
	}
	return reminders, nil
}

// DueCandidates returns pending, notification-enabled reminders across
// all users anchored at or before the given instant.
func (r *ReminderRepository) DueCandidates(ctx context.Context, before time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND notify_enabled = ? AND status = ?", true, true, model.ReminderPending).
		Where("reminder_date <= ?", before).
		Find(&reminders).Error
	if err != nil {
		return nil, apperr.FromDB("reminders.DueCandidates", "reminder", err)
	}
	return reminders, nil
}

func (r *ReminderRepository) FindByID(ctx context.Context, userID uint, id string) (*model.Reminder, error) {
	var reminder model.Reminder
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&reminder).Error; err != nil {
		return nil, apperr.FromDB("reminders.Find", "reminder", err)
	}
	return &reminder, nil
}

func (r *ReminderRepository) Update(ctx context.Context, userID uint, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)
	if res.Error != nil {
		return apperr.FromDB("reminders.Update", "reminder", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E("reminders.Update", "reminder", apperr.ErrNotFound)
	}
	return nil
}

// SoftDelete hides the reminder without dropping the row, so finished
// plans stay visible in history views.
func (r *ReminderRepository) SoftDelete(ctx context.Context, userID uint, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("user_id = ? AND id = ? AND is_active = ?", userID, id, true).
		Update("is_active", false)
	if res.Error != nil {
		return apperr.FromDB("reminders.Delete", "reminder", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E("reminders.Delete", "reminder", apperr.ErrNotFound)
	}
	return nil
}

// MarkNotified stamps the last delivery time so the notifier sends at
// most once per civil day.
func (r *ReminderRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ?", id).
		Update("last_notified_at", at).Error
	if err != nil {
		return apperr.FromDB("reminders.MarkNotified", "reminder", err)
	}
	return nil
}
