package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// TaskPriority orders tasks within a day.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank maps a priority onto a sortable scale, urgent highest.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Subtask is one checklist line stored inside its parent task.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task represents a single item in the planner.
type Task struct {
	ID            string `gorm:"primaryKey;size:36"`
	UserID        uint   `gorm:"index;not null"`
	Title         string `gorm:"not null"`
	Description   string
	Status        TaskStatus   `gorm:"size:16;index;default:pending"`
	Priority      TaskPriority `gorm:"size:16;index;default:medium"`
	Deadline      *time.Time
	Progress      int
	WeekStartDate *time.Time `gorm:"index"`
	Tags          []string   `gorm:"serializer:json"`
	Color         string     `gorm:"size:16"`
	Subtasks      []Subtask  `gorm:"serializer:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// BeforeCreate assigns the row id; SQLite has no uuid default to lean on.
func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// DeriveProgress computes the percentage of completed subtasks, rounded
// to the nearest integer. An empty checklist derives nothing and returns
// -1 so callers keep the manually set progress.
func DeriveProgress(subtasks []Subtask) int {
	if len(subtasks) == 0 {
		return -1
	}
	done := 0
	for _, s := range subtasks {
		if s.Completed {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(subtasks))))
}

// StatusForProgress maps a progress percentage onto the task lifecycle:
// 100 is completed, anything started is in_progress, zero is pending.
func StatusForProgress(progress int) TaskStatus {
	switch {
	case progress >= 100:
		return TaskCompleted
	case progress > 0:
		return TaskInProgress
	default:
		return TaskPending
	}
}

// Reconcile settles progress, status and the completion stamp after any
// edit. A non-empty checklist owns both progress and status; manual
// values only survive without one. Cancelled tasks keep their state
// frozen. Create, update and subtask toggles all funnel through here so
// the rules cannot drift apart.
func (t *Task) Reconcile(now time.Time) {
	if t.Status != TaskCancelled {
		if p := DeriveProgress(t.Subtasks); p >= 0 {
			t.Progress = p
			t.Status = StatusForProgress(p)
		}
	}

	if t.Progress < 0 {
		t.Progress = 0
	}
	if t.Progress > 100 {
		t.Progress = 100
	}

	if t.Status == TaskCompleted {
		t.Progress = 100
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	} else {
		t.CompletedAt = nil
	}
}

// IsOpen reports whether the task still needs attention.
func (t Task) IsOpen() bool {
	return t.Status == TaskPending || t.Status == TaskInProgress
}

// IsOverdue reports whether an open task's deadline has passed.
func (t Task) IsOverdue(now time.Time) bool {
	return t.Deadline != nil && t.IsOpen() && t.Deadline.Before(now)
}
