package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

// Urgent work sorts first, then earlier deadlines within the same rank.
const priorityRank = "CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END"

// TaskFilter narrows task listings. The zero value matches everything.
type TaskFilter struct {
	Status   model.TaskStatus
	Priority model.TaskPriority
	OpenOnly bool
	DueFrom  *time.Time
	DueTo    *time.Time
	WeekOf   *time.Time
	Search   string
}

// Fingerprint renders the filter as a stable cache key fragment.
func (f TaskFilter) Fingerprint() string {
	parts := []string{string(f.Status), string(f.Priority)}
	if f.OpenOnly {
		parts = append(parts, "open")
	}
	if f.DueFrom != nil {
		parts = append(parts, "from="+timeutil.FormatISODate(*f.DueFrom))
	}
	if f.DueTo != nil {
		parts = append(parts, "to="+timeutil.FormatISODate(*f.DueTo))
	}
	if f.WeekOf != nil {
		parts = append(parts, "week="+timeutil.FormatISODate(*f.WeekOf))
	}
	if f.Search != "" {
		parts = append(parts, "q="+f.Search)
	}
	return strings.Join(parts, "|")
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return apperr.FromDB("tasks.Create", "task", err)
	}
	return nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uint, f TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.OpenOnly {
		q = q.Where("status IN ?", []model.TaskStatus{model.TaskPending, model.TaskInProgress})
	}
	if f.DueFrom != nil {
		q = q.Where("deadline >= ?", *f.DueFrom)
	}
	if f.DueTo != nil {
		q = q.Where("deadline <= ?", *f.DueTo)
	}
	if f.WeekOf != nil {
		q = q.Where("week_start_date = ?", timeutil.StartOfWeek(*f.WeekOf))
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("(title LIKE ? OR description LIKE ?)", like, like)
	}

	var tasks []model.Task
	err := q.Order("deadline ASC NULLS LAST").
		Order(priorityRank).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.FromDB("tasks.List", "task", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID uint, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&task).Error; err != nil {
		return nil, apperr.FromDB("tasks.Find", "task", err)
	}
	return &task, nil
}

// Update applies a partial column update. Missing rows surface as not
// found rather than a silent no-op.
func (r *TaskRepository) Update(ctx context.Context, userID uint, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)
	if res.Error != nil {
		return apperr.FromDB("tasks.Update", "task", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E("tasks.Update", "task", apperr.ErrNotFound)
	}
	return nil
}

// Save writes the whole row back, used after in-memory edits to the
// subtask checklist.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return apperr.FromDB("tasks.Save", "task", err)
	}
	return nil
}

// Delete removes the row permanently. Tasks carry no history other users
// depend on, so deletion is a hard delete.
func (r *TaskRepository) Delete(ctx context.Context, userID uint, id string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.Task{})
	if res.Error != nil {
		return apperr.FromDB("tasks.Delete", "task", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E("tasks.Delete", "task", apperr.ErrNotFound)
	}
	return nil
}

// CountByStatus tallies the user's tasks per lifecycle state.
func (r *TaskRepository) CountByStatus(ctx context.Context, userID uint) (map[model.TaskStatus]int64, error) {
	type row struct {
		Status model.TaskStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("status, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.FromDB("tasks.CountByStatus", "task", err)
	}
	counts := make(map[model.TaskStatus]int64, len(rows))
	for _, c := range rows {
		counts[c.Status] = c.N
	}
	return counts, nil
}
