package service

import (
	"context"
	"sort"
	"time"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/session"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

const reminderResource = "reminders"

// ReminderInput carries the fields a user can set when creating a
// reminder. A reminder without Amount, Category and WalletID is treated
// as a plain note.
type ReminderInput struct {
	Title     string
	Type      model.EntryType
	Amount    *int64
	Category  string
	WalletID  *string
	Icon      string
	Date      time.Time
	TimeOfDay string
	Repeat    model.RepeatCadence
	Notes     string
	Color     string
	Notify    bool
}

// ReminderUpdate carries a partial edit; nil fields stay untouched.
type ReminderUpdate struct {
	Title     *string
	Amount    *int64
	ClearAmt  bool
	Category  *string
	WalletID  *string
	Icon      *string
	Date      *time.Time
	TimeOfDay *string
	Repeat    *model.RepeatCadence
	Notes     *string
	Color     *string
	Notify    *bool
}

// ReminderOccurrence is one expanded calendar hit of a reminder.
type ReminderOccurrence struct {
	Date     time.Time
	Reminder model.Reminder
}

// ReminderService wraps reminder and note business logic.
type ReminderService struct {
	repo       *repository.ReminderRepository
	categories *repository.CategoryRepository
	wallets    *repository.WalletRepository
	store      *cache.Store
	ttl        time.Duration
}

func NewReminderService(
	repo *repository.ReminderRepository,
	categories *repository.CategoryRepository,
	wallets *repository.WalletRepository,
	store *cache.Store,
	ttl time.Duration,
) *ReminderService {
	return &ReminderService{repo: repo, categories: categories, wallets: wallets, store: store, ttl: ttl}
}

func (s *ReminderService) List(ctx context.Context, f repository.ReminderFilter) ([]model.Reminder, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(reminderResource, user.ID, "list", f.Fingerprint())
	return cache.Fetch(s.store, key, s.ttl, func() ([]model.Reminder, error) {
		return s.repo.ListByUser(ctx, user.ID, f)
	})
}

// Notes lists the active reminders that carry no financial fields.
func (s *ReminderService) Notes(ctx context.Context) ([]model.Reminder, error) {
	all, err := s.List(ctx, repository.ReminderFilter{})
	if err != nil {
		return nil, err
	}
	notes := make([]model.Reminder, 0, len(all))
	for _, r := range all {
		if r.IsNote() {
			notes = append(notes, r)
		}
	}
	return notes, nil
}

func (s *ReminderService) Get(ctx context.Context, id string) (*model.Reminder, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(reminderResource, user.ID, "id", id)
	return cache.Fetch(s.store, key, s.ttl, func() (*model.Reminder, error) {
		return s.repo.FindByID(ctx, user.ID, id)
	})
}

func (s *ReminderService) Create(ctx context.Context, input ReminderInput) (*model.Reminder, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, apperr.Invalid("reminders.Create", "title is required")
	}
	if input.Type == "" {
		input.Type = model.EntryExpense
	}
	if !input.Type.Valid() {
		return nil, apperr.Invalid("reminders.Create", "unknown type "+string(input.Type))
	}
	if input.Repeat == "" {
		input.Repeat = model.RepeatNone
	}
	if !input.Repeat.Valid() {
		return nil, apperr.Invalid("reminders.Create", "unknown repeat "+string(input.Repeat))
	}
	if input.Amount != nil && *input.Amount <= 0 {
		return nil, apperr.Invalid("reminders.Create", "amount must be positive")
	}
	if input.TimeOfDay != "" {
		if _, err := time.Parse("15:04", input.TimeOfDay); err != nil {
			return nil, apperr.Invalid("reminders.Create", "time must be HH:MM")
		}
	}
	if input.Date.IsZero() {
		input.Date = timeutil.Now()
	}

	var categoryID *string
	if input.Category != "" {
		category, err := s.categories.GetOrCreate(ctx, user.ID, input.Category, input.Type)
		if err != nil {
			return nil, err
		}
		if category != nil {
			categoryID = &category.ID
		}
	}
	if input.WalletID != nil {
		if _, err := s.wallets.FindByID(ctx, user.ID, *input.WalletID); err != nil {
			return nil, err
		}
	}

	reminder := model.Reminder{
		UserID:        user.ID,
		Title:         input.Title,
		Type:          input.Type,
		Amount:        input.Amount,
		CategoryID:    categoryID,
		WalletID:      input.WalletID,
		Icon:          input.Icon,
		ReminderDate:  timeutil.StartOfDay(input.Date),
		ReminderTime:  input.TimeOfDay,
		Repeat:        input.Repeat,
		Status:        model.ReminderPending,
		Notes:         input.Notes,
		Color:         input.Color,
		NotifyEnabled: input.Notify,
		IsActive:      true,
	}

	if err := s.repo.Create(ctx, &reminder); err != nil {
		return nil, err
	}
	s.store.Invalidate(cache.Prefix(reminderResource, user.ID))
	return &reminder, nil
}

func (s *ReminderService) Update(ctx context.Context, id string, input ReminderUpdate) (*model.Reminder, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	reminder, err := s.repo.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		if *input.Title == "" {
			return nil, apperr.Invalid("reminders.Update", "title is required")
		}
		updates["title"] = *input.Title
	}
	if input.ClearAmt {
		updates["amount"] = nil
	} else if input.Amount != nil {
		if *input.Amount <= 0 {
			return nil, apperr.Invalid("reminders.Update", "amount must be positive")
		}
		updates["amount"] = *input.Amount
	}
	if input.Category != nil {
		if *input.Category == "" {
			updates["category_id"] = nil
		} else {
			category, err := s.categories.GetOrCreate(ctx, user.ID, *input.Category, reminder.Type)
			if err != nil {
				return nil, err
			}
			updates["category_id"] = category.ID
		}
	}
	if input.WalletID != nil {
		if *input.WalletID == "" {
			updates["wallet_id"] = nil
		} else {
			if _, err := s.wallets.FindByID(ctx, user.ID, *input.WalletID); err != nil {
				return nil, err
			}
			updates["wallet_id"] = *input.WalletID
		}
	}
	if input.Icon != nil {
		updates["icon"] = *input.Icon
	}
	if input.Date != nil {
		updates["reminder_date"] = timeutil.StartOfDay(*input.Date)
	}
	if input.TimeOfDay != nil {
		if *input.TimeOfDay != "" {
			if _, err := time.Parse("15:04", *input.TimeOfDay); err != nil {
				return nil, apperr.Invalid("reminders.Update", "time must be HH:MM")
			}
		}
		updates["reminder_time"] = *input.TimeOfDay
	}
	if input.Repeat != nil {
		if !input.Repeat.Valid() {
			return nil, apperr.Invalid("reminders.Update", "unknown repeat "+string(*input.Repeat))
		}
		updates["repeat"] = *input.Repeat
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.Color != nil {
		updates["color"] = *input.Color
	}
	if input.Notify != nil {
		updates["notify_enabled"] = *input.Notify
	}
	if len(updates) == 0 {
		return reminder, nil
	}

	if err := s.repo.Update(ctx, user.ID, id, updates); err != nil {
		return nil, err
	}
	s.store.Invalidate(cache.Prefix(reminderResource, user.ID))
	return s.repo.FindByID(ctx, user.ID, id)
}

// Complete marks the reminder done.
func (s *ReminderService) Complete(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.ReminderCompleted)
}

// Skip dismisses the reminder without completing it.
func (s *ReminderService) Skip(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.ReminderSkipped)
}

func (s *ReminderService) setStatus(ctx context.Context, id string, status model.ReminderStatus) error {
	user, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, user.ID, id, map[string]interface{}{"status": status}); err != nil {
		return err
	}
	s.store.Invalidate(cache.Prefix(reminderResource, user.ID))
	return nil
}

// Delete hides the reminder. History views can still reach the row.
func (s *ReminderService) Delete(ctx context.Context, id string) error {
	user, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, user.ID, id); err != nil {
		return err
	}
	s.store.Invalidate(cache.Prefix(reminderResource, user.ID))
	return nil
}

// ForDate lists the reminders occurring on the given civil day, cadence
// expanded and ordered by wall time.
func (s *ReminderService) ForDate(ctx context.Context, day time.Time) ([]model.Reminder, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(reminderResource, user.ID, "day", timeutil.FormatISODate(day))
	return cache.Fetch(s.store, key, s.ttl, func() ([]model.Reminder, error) {
		candidates, err := s.repo.ListCandidatesForRange(ctx, user.ID, timeutil.StartOfDay(day), timeutil.EndOfDay(day))
		if err != nil {
			return nil, err
		}
		due := make([]model.Reminder, 0, len(candidates))
		for _, r := range candidates {
			if r.OccursOn(day) {
				due = append(due, r)
			}
		}
		sort.SliceStable(due, func(i, j int) bool {
			return due[i].DueAt(day).Before(due[j].DueAt(day))
		})
		return due, nil
	})
}

// ForMonth expands every reminder into its occurrences inside anchor's
// month, for the calendar view.
func (s *ReminderService) ForMonth(ctx context.Context, anchor time.Time) ([]ReminderOccurrence, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	from, to := timeutil.MonthRange(anchor)
	key := cache.Key(reminderResource, user.ID, "month", timeutil.FormatISODate(from))
	return cache.Fetch(s.store, key, s.ttl, func() ([]ReminderOccurrence, error) {
		candidates, err := s.repo.ListCandidatesForRange(ctx, user.ID, from, to)
		if err != nil {
			return nil, err
		}
		var occurrences []ReminderOccurrence
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			for _, r := range candidates {
				if r.OccursOn(day) {
					occurrences = append(occurrences, ReminderOccurrence{Date: day, Reminder: r})
				}
			}
		}
		return occurrences, nil
	})
}
