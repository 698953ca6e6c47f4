package model

import (
	"time"

	"gorm.io/gorm"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every valid priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a single item owned by a user.
type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	CategoryID  *uint          `gorm:"index" json:"category_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description *string        `json:"description"`
	Status      Status         `gorm:"size:20;not null;default:pending;index" json:"status"`
	Priority    Priority       `gorm:"size:20;not null;default:medium" json:"priority"`
	DueDate     *time.Time     `gorm:"index" json:"due_date"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// SetStatus moves the task to status and keeps CompletedAt consistent with it:
// non-nil exactly when the task is completed.
func (t *Task) SetStatus(status Status, now time.Time) {
	if status == StatusCompleted {
		if t.Status != StatusCompleted || t.CompletedAt == nil {
			completedAt := now
			t.CompletedAt = &completedAt
		}
	} else {
		t.CompletedAt = nil
	}
	t.Status = status
}
