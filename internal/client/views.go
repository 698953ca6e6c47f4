package client

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

// UncategorizedName labels tasks without a known category.
const UncategorizedName = "Uncategorized"

// TaskFilters narrow a cached task list. Zero values match everything.
type TaskFilters struct {
	Status     model.Status
	Priority   model.Priority
	CategoryID uint
	Search     string
}

// TaskSort orders a cached task list by Field ("asc" or "desc").
type TaskSort struct {
	Field     string
	Direction string
}

// CategoryCount is a category with the counts of its cached tasks.
type CategoryCount struct {
	model.Category
	TaskCount      int     `json:"task_count"`
	CompletedCount int     `json:"completed_task_count"`
	CompletionRate float64 `json:"completion_rate"`
}

// FilterTasks keeps tasks matching every set filter. Search is a
// case-insensitive substring match over title and description.
func FilterTasks(tasks []model.Task, f TaskFilters) []model.Task {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.CategoryID != 0 && (t.CategoryID == nil || *t.CategoryID != f.CategoryID) {
			continue
		}
		if term != "" && !matchesSearch(t, term) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(t model.Task, term string) bool {
	if strings.Contains(strings.ToLower(t.Title), term) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), term)
}

// SortTasks returns a sorted copy. Missing values go last ascending and
// first descending; status and priority sort in workflow order.
func SortTasks(tasks []model.Task, s TaskSort) []model.Task {
	out := slices.Clone(tasks)
	asc := !strings.EqualFold(s.Direction, "desc")
	slices.SortStableFunc(out, func(a, b model.Task) int {
		c, aNil, bNil := compareField(&a, &b, s.Field)
		switch {
		case aNil && bNil:
			return 0
		case aNil:
			if asc {
				return 1
			}
			return -1
		case bNil:
			if asc {
				return -1
			}
			return 1
		}
		if !asc {
			c = -c
		}
		return c
	})
	return out
}

func compareField(a, b *model.Task, field string) (int, bool, bool) {
	switch field {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)), false, false
	case "status":
		return cmp.Compare(slices.Index(model.Statuses, a.Status), slices.Index(model.Statuses, b.Status)), false, false
	case "priority":
		return cmp.Compare(slices.Index(model.Priorities, a.Priority), slices.Index(model.Priorities, b.Priority)), false, false
	case "due_date":
		return compareTimes(a.DueDate, b.DueDate)
	case "completed_at":
		return compareTimes(a.CompletedAt, b.CompletedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt), false, false
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt), false, false
	default:
		return cmp.Compare(a.ID, b.ID), false, false
	}
}

func compareTimes(a, b *time.Time) (int, bool, bool) {
	if a == nil || b == nil {
		return 0, a == nil, b == nil
	}
	return a.Compare(*b), false, false
}

// GroupByStatus buckets tasks by status; every status has a bucket.
func GroupByStatus(tasks []model.Task) map[model.Status][]model.Task {
	groups := make(map[model.Status][]model.Task, len(model.Statuses))
	for _, s := range model.Statuses {
		groups[s] = []model.Task{}
	}
	for _, t := range tasks {
		if _, ok := groups[t.Status]; ok {
			groups[t.Status] = append(groups[t.Status], t)
		}
	}
	return groups
}

// CountsByCategory counts tasks per category id, skipping uncategorized tasks.
func CountsByCategory(tasks []model.Task) map[uint]int {
	counts := map[uint]int{}
	for _, t := range tasks {
		if t.CategoryID != nil {
			counts[*t.CategoryID]++
		}
	}
	return counts
}

// CompletionRate is the completed share of tasks in percent, two decimals.
func CompletionRate(tasks []model.Task) float64 {
	completed := 0
	for _, t := range tasks {
		if t.Status == model.StatusCompleted {
			completed++
		}
	}
	return service.CompletionRate(completed, len(tasks))
}

// Overdue lists open tasks due strictly before now.
func Overdue(tasks []model.Task, now time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.Status != model.StatusCompleted && t.DueDate != nil && t.DueDate.Before(now) {
			out = append(out, t)
		}
	}
	return out
}

// DueSoon lists open tasks due between now and three days later, inclusive.
func DueSoon(tasks []model.Task, now time.Time) []model.Task {
	end := now.Add(service.DueSoonWindow)
	var out []model.Task
	for _, t := range tasks {
		if t.Status == model.StatusCompleted || t.DueDate == nil {
			continue
		}
		if !t.DueDate.Before(now) && !t.DueDate.After(end) {
			out = append(out, t)
		}
	}
	return out
}

// CategoryName resolves a task's category name.
func CategoryName(categories []model.Category, id *uint) string {
	if id == nil {
		return UncategorizedName
	}
	for _, c := range categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return UncategorizedName
}

// CategoriesWithCounts joins categories with per-category task counts.
func CategoriesWithCounts(categories []model.Category, tasks []model.Task) []CategoryCount {
	totals := CountsByCategory(tasks)
	completed := CountsByCategory(FilterTasks(tasks, TaskFilters{Status: model.StatusCompleted}))
	out := make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryCount{
			Category:       c,
			TaskCount:      totals[c.ID],
			CompletedCount: completed[c.ID],
			CompletionRate: service.CompletionRate(completed[c.ID], totals[c.ID]),
		})
	}
	return out
}
