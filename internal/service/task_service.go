package service

import (
	"context"
	"time"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/session"
	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

const taskResource = "tasks"

// TaskInput carries the fields a user can set when creating a task.
type TaskInput struct {
	Title       string
	Description string
	Status      model.TaskStatus
	Priority    model.TaskPriority
	Deadline    *time.Time
	Progress    int
	Tags        []string
	Color       string
	Subtasks    []model.Subtask
}

// TaskUpdate carries a partial edit; nil fields stay untouched.
// ClearDeadline removes the deadline, which a nil Deadline cannot express.
type TaskUpdate struct {
	Title         *string
	Description   *string
	Status        *model.TaskStatus
	Priority      *model.TaskPriority
	Deadline      *time.Time
	ClearDeadline bool
	Progress      *int
	Tags          *[]string
	Color         *string
	Subtasks      *[]model.Subtask
}

// TaskService wraps task business logic behind the session and the
// read cache.
type TaskService struct {
	repo  *repository.TaskRepository
	store *cache.Store
	ttl   time.Duration
}

func NewTaskService(repo *repository.TaskRepository, store *cache.Store, ttl time.Duration) *TaskService {
	return &TaskService{repo: repo, store: store, ttl: ttl}
}

func (s *TaskService) List(ctx context.Context, f repository.TaskFilter) ([]model.Task, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(taskResource, user.ID, "list", f.Fingerprint())
	return cache.Fetch(s.store, key, s.ttl, func() ([]model.Task, error) {
		return s.repo.ListByUser(ctx, user.ID, f)
	})
}

func (s *TaskService) Get(ctx context.Context, id string) (*model.Task, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(taskResource, user.ID, "id", id)
	return cache.Fetch(s.store, key, s.ttl, func() (*model.Task, error) {
		return s.repo.FindByID(ctx, user.ID, id)
	})
}

func (s *TaskService) Create(ctx context.Context, input TaskInput) (*model.Task, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, apperr.Invalid("tasks.Create", "title is required")
	}
	if input.Status == "" {
		input.Status = model.TaskPending
	}
	if !input.Status.Valid() {
		return nil, apperr.Invalid("tasks.Create", "unknown status "+string(input.Status))
	}
	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperr.Invalid("tasks.Create", "unknown priority "+string(input.Priority))
	}

	now := timeutil.Now()
	task := model.Task{
		UserID:      user.ID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		Deadline:    input.Deadline,
		Progress:    input.Progress,
		Tags:        input.Tags,
		Color:       input.Color,
		Subtasks:    input.Subtasks,
	}
	task.WeekStartDate = weekAnchor(task.Deadline, now)
	task.Reconcile(now)

	if err := s.repo.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.store.Invalidate(cache.Prefix(taskResource, user.ID))
	return &task, nil
}

func (s *TaskService) Update(ctx context.Context, id string, input TaskUpdate) (*model.Task, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.FindByID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, apperr.Invalid("tasks.Update", "title is required")
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperr.Invalid("tasks.Update", "unknown status "+string(*input.Status))
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperr.Invalid("tasks.Update", "unknown priority "+string(*input.Priority))
		}
		task.Priority = *input.Priority
	}
	if input.ClearDeadline {
		task.Deadline = nil
	} else if input.Deadline != nil {
		task.Deadline = input.Deadline
	}
	if input.Progress != nil {
		task.Progress = *input.Progress
	}
	if input.Tags != nil {
		task.Tags = *input.Tags
	}
	if input.Color != nil {
		task.Color = *input.Color
	}
	if input.Subtasks != nil {
		task.Subtasks = *input.Subtasks
	}

	now := timeutil.Now()
	task.WeekStartDate = weekAnchor(task.Deadline, now)
	task.Reconcile(now)

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	s.store.Invalidate(cache.Prefix(taskResource, user.ID))
	return task, nil
}

// Complete is the one-tap path used by inline keyboard buttons.
func (s *TaskService) Complete(ctx context.Context, id string) (*model.Task, error) {
	status := model.TaskCompleted
	return s.Update(ctx, id, TaskUpdate{Status: &status})
}

// ToggleSubtask flips one checklist line and rederives the parent's
// progress and status.
func (s *TaskService) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (*model.Task, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range task.Subtasks {
		if task.Subtasks[i].ID == subtaskID {
			task.Subtasks[i].Completed = !task.Subtasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.E("tasks.ToggleSubtask", "subtask", apperr.ErrNotFound)
	}

	task.Reconcile(timeutil.Now())

	if err := s.repo.Save(ctx, task); err != nil {
		return nil, err
	}
	s.store.Invalidate(cache.Prefix(taskResource, user.ID))
	return task, nil
}

// Delete removes the task permanently.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	user, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user.ID, id); err != nil {
		return err
	}
	s.store.Invalidate(cache.Prefix(taskResource, user.ID))
	return nil
}

// ForWeek lists the tasks anchored to the week containing anchor.
func (s *TaskService) ForWeek(ctx context.Context, anchor time.Time) ([]model.Task, error) {
	return s.List(ctx, repository.TaskFilter{WeekOf: &anchor})
}

// ForMonth lists the tasks whose deadline falls inside anchor's month.
func (s *TaskService) ForMonth(ctx context.Context, anchor time.Time) ([]model.Task, error) {
	from, to := timeutil.MonthRange(anchor)
	return s.List(ctx, repository.TaskFilter{DueFrom: &from, DueTo: &to})
}

// ApproachingDeadline lists open tasks due within the window from now.
func (s *TaskService) ApproachingDeadline(ctx context.Context, now time.Time, window time.Duration) ([]model.Task, error) {
	to := now.Add(window)
	return s.List(ctx, repository.TaskFilter{OpenOnly: true, DueFrom: &now, DueTo: &to})
}

// Counts tallies the user's tasks per status for the stats view.
func (s *TaskService) Counts(ctx context.Context) (map[model.TaskStatus]int64, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(taskResource, user.ID, "counts")
	return cache.Fetch(s.store, key, s.ttl, func() (map[model.TaskStatus]int64, error) {
		return s.repo.CountByStatus(ctx, user.ID)
	})
}

// weekAnchor pins a task to the Monday of its deadline week, or of the
// current week when it has no deadline.
func weekAnchor(deadline *time.Time, now time.Time) *time.Time {
	anchor := timeutil.StartOfWeek(now)
	if deadline != nil {
		anchor = timeutil.StartOfWeek(*deadline)
	}
	return &anchor
}
