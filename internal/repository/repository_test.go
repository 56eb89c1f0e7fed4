package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, telegramID int64) *model.User {
	t.Helper()
	user, err := repository.NewUserRepository(db).
		UpsertFromTelegram(context.Background(), telegramID, "Quang", "", "quang")
	require.NoError(t, err)
	return user
}

func TestUserUpsertFromTelegram(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertFromTelegram(ctx, 111, "Anh", "", "anh")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	again, err := repo.UpsertFromTelegram(ctx, 111, "Anh Tuấn", "Nguyễn", "anh")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Anh Tuấn", again.FirstName)

	users, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestTaskRepositoryCRUD(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 200)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	task := &model.Task{
		UserID:   user.ID,
		Title:    "viết báo cáo tuần",
		Status:   model.TaskPending,
		Priority: model.PriorityMedium,
	}
	require.NoError(t, repo.Create(ctx, task))
	require.NotEmpty(t, task.ID)

	found, err := repo.FindByID(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "viết báo cáo tuần", found.Title)

	err = repo.Update(ctx, user.ID, task.ID, map[string]interface{}{
		"progress": 40,
		"status":   model.TaskInProgress,
	})
	require.NoError(t, err)

	found, err = repo.FindByID(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, found.Progress)
	assert.Equal(t, model.TaskInProgress, found.Status)

	err = repo.Update(ctx, user.ID, "missing-id", map[string]interface{}{"progress": 1})
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, repo.Delete(ctx, user.ID, task.ID))
	_, err = repo.FindByID(ctx, user.ID, task.ID)
	assert.True(t, apperr.IsNotFound(err))

	err = repo.Delete(ctx, user.ID, task.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestTaskRepositoryOwnership(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	owner := seedUser(t, db, 201)
	other := seedUser(t, db, 202)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	task := &model.Task{UserID: owner.ID, Title: "việc riêng", Status: model.TaskPending, Priority: model.PriorityLow}
	require.NoError(t, repo.Create(ctx, task))

	_, err := repo.FindByID(ctx, other.ID, task.ID)
	assert.True(t, apperr.IsNotFound(err))

	err = repo.Delete(ctx, other.ID, task.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestTaskRepositoryListOrdering(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 203)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	tomorrow := timeutil.StartOfDay(timeutil.Now().AddDate(0, 0, 1))

	low := &model.Task{UserID: user.ID, Title: "dọn nhà", Status: model.TaskPending, Priority: model.PriorityLow, Deadline: &tomorrow}
	urgent := &model.Task{UserID: user.ID, Title: "nộp thuế", Status: model.TaskPending, Priority: model.PriorityUrgent, Deadline: &tomorrow}
	dateless := &model.Task{UserID: user.ID, Title: "đọc sách", Status: model.TaskPending, Priority: model.PriorityUrgent}
	for _, task := range []*model.Task{low, urgent, dateless} {
		require.NoError(t, repo.Create(ctx, task))
	}

	tasks, err := repo.ListByUser(ctx, user.ID, repository.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, "nộp thuế", tasks[0].Title)
	assert.Equal(t, "dọn nhà", tasks[1].Title)
	assert.Equal(t, "đọc sách", tasks[2].Title)
}

func TestTaskRepositoryFilters(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 204)
	repo := repository.NewTaskRepository(db)
	ctx := context.Background()

	week := timeutil.StartOfWeek(timeutil.Now())
	done := &model.Task{UserID: user.ID, Title: "họp sprint", Status: model.TaskCompleted, Priority: model.PriorityMedium}
	open := &model.Task{UserID: user.ID, Title: "viết báo cáo quý", Status: model.TaskPending, Priority: model.PriorityHigh, WeekStartDate: &week}
	for _, task := range []*model.Task{done, open} {
		require.NoError(t, repo.Create(ctx, task))
	}

	completed, err := repo.ListByUser(ctx, user.ID, repository.TaskFilter{Status: model.TaskCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "họp sprint", completed[0].Title)

	openOnly, err := repo.ListByUser(ctx, user.ID, repository.TaskFilter{OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, openOnly, 1)
	assert.Equal(t, "viết báo cáo quý", openOnly[0].Title)

	searched, err := repo.ListByUser(ctx, user.ID, repository.TaskFilter{Search: "báo cáo"})
	require.NoError(t, err)
	require.Len(t, searched, 1)

	midweek := week.AddDate(0, 0, 3)
	inWeek, err := repo.ListByUser(ctx, user.ID, repository.TaskFilter{WeekOf: &midweek})
	require.NoError(t, err)
	require.Len(t, inWeek, 1)
	assert.Equal(t, "viết báo cáo quý", inWeek[0].Title)
}

func TestDuplicateCategorySurfacesAsConflict(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 208)
	repo := repository.NewCategoryRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, user.ID, "Ăn uống", model.EntryExpense)
	require.NoError(t, err)
	require.NotNil(t, first)

	// A writer that lost the find-then-create race hits the unique
	// index; the driver error must arrive as a tagged conflict.
	dup := model.Category{UserID: user.ID, Name: "Ăn uống", Type: model.EntryExpense}
	err = db.Create(&dup).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.True(t, apperr.IsConflict(apperr.FromDB("categories.GetOrCreate", "category", err)))
}

func TestReminderRepositorySoftDelete(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 205)
	repo := repository.NewReminderRepository(db)
	ctx := context.Background()

	reminder := &model.Reminder{
		UserID:       user.ID,
		Title:        "đóng tiền nhà",
		Type:         model.EntryExpense,
		ReminderDate: timeutil.StartOfDay(timeutil.Now()),
		Status:       model.ReminderPending,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(ctx, reminder))

	require.NoError(t, repo.SoftDelete(ctx, user.ID, reminder.ID))

	visible, err := repo.ListByUser(ctx, user.ID, repository.ReminderFilter{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := repo.ListByUser(ctx, user.ID, repository.ReminderFilter{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	// The row survives for history lookups.
	kept, err := repo.FindByID(ctx, user.ID, reminder.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsActive)

	err = repo.SoftDelete(ctx, user.ID, reminder.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestReminderListCandidatesForRange(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 206)
	repo := repository.NewReminderRepository(db)
	ctx := context.Background()

	from := timeutil.Date(2025, time.September, 1, 0, 0, 0, 0)
	to := timeutil.Date(2025, time.September, 30, 0, 0, 0, 0)

	inWindow := &model.Reminder{UserID: user.ID, Title: "khám răng", ReminderDate: timeutil.Date(2025, time.September, 10, 0, 0, 0, 0), Repeat: model.RepeatNone, Status: model.ReminderPending, IsActive: true}
	before := &model.Reminder{UserID: user.ID, Title: "đã qua", ReminderDate: timeutil.Date(2025, time.August, 20, 0, 0, 0, 0), Repeat: model.RepeatNone, Status: model.ReminderPending, IsActive: true}
	repeating := &model.Reminder{UserID: user.ID, Title: "tập gym", ReminderDate: timeutil.Date(2025, time.August, 1, 0, 0, 0, 0), Repeat: model.RepeatDaily, Status: model.ReminderPending, IsActive: true}
	future := &model.Reminder{UserID: user.ID, Title: "tháng sau", ReminderDate: timeutil.Date(2025, time.October, 5, 0, 0, 0, 0), Repeat: model.RepeatMonthly, Status: model.ReminderPending, IsActive: true}
	for _, r := range []*model.Reminder{inWindow, before, repeating, future} {
		require.NoError(t, repo.Create(ctx, r))
	}

	candidates, err := repo.ListCandidatesForRange(ctx, user.ID, from, to)
	require.NoError(t, err)

	titles := make([]string, 0, len(candidates))
	for _, c := range candidates {
		titles = append(titles, c.Title)
	}
	assert.ElementsMatch(t, []string{"khám răng", "tập gym"}, titles)
}

func TestReminderDueCandidatesAndMarkNotified(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	user := seedUser(t, db, 207)
	repo := repository.NewReminderRepository(db)
	ctx := context.Background()

	yesterday := timeutil.StartOfDay(timeutil.Now().AddDate(0, 0, -1))
	tomorrow := timeutil.StartOfDay(timeutil.Now().AddDate(0, 0, 1))

	due := &model.Reminder{UserID: user.ID, Title: "uống thuốc", ReminderDate: yesterday, Repeat: model.RepeatDaily, Status: model.ReminderPending, NotifyEnabled: true, IsActive: true}
	muted := &model.Reminder{UserID: user.ID, Title: "im lặng", ReminderDate: yesterday, Status: model.ReminderPending, NotifyEnabled: false, IsActive: true}
	finished := &model.Reminder{UserID: user.ID, Title: "xong rồi", ReminderDate: yesterday, Status: model.ReminderCompleted, NotifyEnabled: true, IsActive: true}
	notYet := &model.Reminder{UserID: user.ID, Title: "ngày mai", ReminderDate: tomorrow, Status: model.ReminderPending, NotifyEnabled: true, IsActive: true}
	for _, r := range []*model.Reminder{due, muted, finished, notYet} {
		require.NoError(t, repo.Create(ctx, r))
	}

	candidates, err := repo.DueCandidates(ctx, timeutil.Now())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "uống thuốc", candidates[0].Title)

	now := timeutil.Now()
	require.NoError(t, repo.MarkNotified(ctx, due.ID, now))

	stamped, err := repo.FindByID(ctx, user.ID, due.ID)
	require.NoError(t, err)
	require.NotNil(t, stamped.LastNotifiedAt)
	assert.True(t, timeutil.SameDay(*stamped.LastNotifiedAt, now))
}
