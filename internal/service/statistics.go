package service

import (
	"math"
	"time"

	"task-manager/internal/model"
)

// DueSoonWindow is how far ahead a due date counts as "due soon".
const DueSoonWindow = 3 * 24 * time.Hour

// Statistics aggregates a user's tasks.
type Statistics struct {
	TotalTasks        int     `json:"total_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	PendingTasks      int     `json:"pending_tasks"`
	InProgressTasks   int     `json:"in_progress_tasks"`
	HighPriorityTasks int     `json:"high_priority_tasks"`
	DueSoonTasks      int     `json:"due_soon_tasks"`
	OverdueTasks      int     `json:"overdue_tasks"`
	CompletionRate    float64 `json:"completion_rate"`
}

// ComputeStatistics derives the aggregate from tasks as of now.
func ComputeStatistics(tasks []model.Task, now time.Time) Statistics {
	var st Statistics
	dueSoonEnd := now.Add(DueSoonWindow)
	for _, task := range tasks {
		st.TotalTasks++
		switch task.Status {
		case model.StatusCompleted:
			st.CompletedTasks++
		case model.StatusPending:
			st.PendingTasks++
		case model.StatusInProgress:
			st.InProgressTasks++
		}
		if task.Priority == model.PriorityHigh {
			st.HighPriorityTasks++
		}
		if task.DueDate == nil || task.Status == model.StatusCompleted {
			continue
		}
		due := *task.DueDate
		switch {
		case due.Before(now):
			st.OverdueTasks++
		case !due.After(dueSoonEnd):
			st.DueSoonTasks++
		}
	}
	st.CompletionRate = CompletionRate(st.CompletedTasks, st.TotalTasks)
	return st
}

// CompletionRate returns completed/total as a percentage rounded to two decimals, or 0 for no tasks.
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}
