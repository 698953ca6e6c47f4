package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"task-manager/internal/client"
	"task-manager/internal/model"
	"task-manager/internal/service"
)

func uintPtr(v uint) *uint { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestShortTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		max   int
		want  string
	}{
		{"short", "buy milk", 20, "Buy milk"},
		{"truncated", "prepare quarterly report", 10, "Prepare q…"},
		{"newlines", "line one\nline two", 30, "Line one line two"},
		{"tiny limit", "abc", 1, "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shortTitle(tt.title, tt.max); got != tt.want {
				t.Errorf("shortTitle(%q, %d) = %q, want %q", tt.title, tt.max, got, tt.want)
			}
		})
	}
}

func TestParseTaskID(t *testing.T) {
	if id, err := parseTaskID("complete:42", cbCompletePrefix); err != nil || id != 42 {
		t.Fatalf("parseTaskID callback = %d, %v", id, err)
	}
	if id, err := parseTaskID(" 7 ", ""); err != nil || id != 7 {
		t.Fatalf("parseTaskID arg = %d, %v", id, err)
	}
	for _, bad := range []string{"", "abc", "0", "-3"} {
		if _, err := parseTaskID(bad, ""); err == nil {
			t.Errorf("parseTaskID(%q) expected error", bad)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-11-30", time.Date(2025, 11, 30, 0, 0, 0, 0, time.Local)},
		{"2025-11-30 18:05", time.Date(2025, 11, 30, 18, 5, 0, 0, time.Local)},
		{"30.11.2025", time.Date(2025, 11, 30, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		if err != nil {
			t.Fatalf("parseDate(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseDate("tomorrow"); err == nil {
		t.Error("expected error for free text")
	}
}

func TestGroupByCategory(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	categories := []model.Category{{ID: 1, Name: "Work"}, {ID: 2, Name: "health"}}
	tasks := []model.Task{
		{ID: 1, Title: "loose"},
		{ID: 2, Title: "late", CategoryID: uintPtr(1)},
		{ID: 3, Title: "early", CategoryID: uintPtr(1), DueDate: timePtr(now)},
		{ID: 4, Title: "run", CategoryID: uintPtr(2)},
		{ID: 5, Title: "orphan", CategoryID: uintPtr(99)},
	}

	groups := groupByCategory(tasks, categories)
	var names []string
	for _, g := range groups {
		names = append(names, g.name)
	}
	if got := strings.Join(names, ","); got != "health,Work,"+client.UncategorizedName {
		t.Fatalf("group order = %s", got)
	}
	if work := groups[1].tasks; work[0].ID != 3 || work[1].ID != 2 {
		t.Errorf("work tasks not ordered by due date: %+v", work)
	}
	if n := len(groups[2].tasks); n != 2 {
		t.Errorf("uncategorized tasks = %d, want 2", n)
	}
}

func TestFormatTask(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	desc := "<b>bold</b>"
	tests := []struct {
		name     string
		task     model.Task
		contains []string
	}{
		{"overdue", model.Task{ID: 1, Title: "pay rent", DueDate: timePtr(now.Add(-time.Hour))}, []string{iconOverdue, "Pay rent", "overdue"}},
		{"due soon", model.Task{ID: 2, Title: "call", DueDate: timePtr(now.Add(48 * time.Hour))}, []string{iconDue}},
		{"plain", model.Task{ID: 3, Title: "read", Priority: model.PriorityHigh}, []string{iconDefault, "❗"}},
		{"completed", model.Task{ID: 4, Title: "done", Status: model.StatusCompleted, DueDate: timePtr(now.Add(-time.Hour))}, []string{iconDone}},
		{"escaped", model.Task{ID: 5, Title: "x", Description: &desc}, []string{"&lt;b&gt;bold&lt;/b&gt;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTask(tt.task, now)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("formatTask() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestFormatStats(t *testing.T) {
	got := formatStats(service.Statistics{TotalTasks: 3, CompletedTasks: 1, CompletionRate: 33.33})
	for _, want := range []string{"Total: 3", "Completed: 1", "33.33%"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatStats() missing %q in %q", want, got)
		}
	}
}

func TestAPIMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transport", context.DeadlineExceeded, "The task service is unreachable. Try again later."},
		{"conflict", &client.APIError{Status: 422, Message: "Cannot delete category with existing tasks", TasksCount: 2}, "Cannot delete category with existing tasks (2 tasks still use it)"},
		{"validation", &client.APIError{Status: 422, Message: "Validation failed", Errors: map[string][]string{"title": {"The title field is required."}}}, "Validation failed\nThe title field is required."},
		{"bare status", &client.APIError{Status: 502}, "Request failed with status 502."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiMessage(tt.err); got != tt.want {
				t.Errorf("apiMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInputMatchers(t *testing.T) {
	if !isSkipInput(btnSkip) || !isSkipInput(" - ") || isSkipInput("milk") {
		t.Error("isSkipInput mismatch")
	}
	if !isConfirmInput(btnConfirm) || !isConfirmInput("YES") || isConfirmInput("no") {
		t.Error("isConfirmInput mismatch")
	}
	if !isCancelInput(btnCancel) || isCancelInput("yes") {
		t.Error("isCancelInput mismatch")
	}
	if !isCancelDialogInput(btnCancelDialog) || isCancelDialogInput("cancel") {
		t.Error("isCancelDialogInput mismatch")
	}
}
