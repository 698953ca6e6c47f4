package service

import (
	"testing"
	"time"

	"task-manager/internal/model"
)

func TestCompletionRate(t *testing.T) {
	testCases := []struct {
		completed, total int
		want             float64
	}{
		{0, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
		{0, 5, 0},
	}
	for _, tc := range testCases {
		if got := CompletionRate(tc.completed, tc.total); got != tc.want {
			t.Errorf("CompletionRate(%d, %d) = %v, want %v", tc.completed, tc.total, got, tc.want)
		}
	}
}

func TestComputeStatistics_DueWindows(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	tasks := []model.Task{
		{Status: model.StatusPending, DueDate: at(0)},
		{Status: model.StatusPending, DueDate: at(DueSoonWindow)},
		{Status: model.StatusPending, DueDate: at(DueSoonWindow + time.Second)},
		{Status: model.StatusPending, DueDate: at(-time.Second)},
		// completed tasks are never overdue
		{Status: model.StatusCompleted, DueDate: at(-time.Hour), Priority: model.PriorityHigh},
		{Status: model.StatusInProgress},
	}

	st := ComputeStatistics(tasks, now)
	if st.DueSoonTasks != 2 {
		t.Errorf("expected 2 due soon, got %d", st.DueSoonTasks)
	}
	if st.OverdueTasks != 1 {
		t.Errorf("expected 1 overdue, got %d", st.OverdueTasks)
	}
	if st.HighPriorityTasks != 1 || st.CompletedTasks != 1 || st.PendingTasks != 4 || st.InProgressTasks != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.CompletionRate != 16.67 {
		t.Errorf("expected completion rate 16.67, got %v", st.CompletionRate)
	}
}
