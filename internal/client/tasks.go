package client

import (
	"context"
	"slices"
	"sync"
	"time"

	"task-manager/internal/model"
)

// TaskState caches the user's tasks. The cache changes only after the API
// confirms a mutation; overlapping calls for the same task are not ordered,
// so the response that arrives last wins.
type TaskState struct {
	api *Client

	mu      sync.RWMutex
	tasks   []model.Task
	current *model.Task
	filters TaskFilters
	sort    TaskSort
	pending int
	lastErr string
}

func NewTaskState(api *Client) *TaskState {
	return &TaskState{api: api, sort: TaskSort{Field: "due_date", Direction: "asc"}}
}

// Fetch replaces the cache with the server's list.
func (s *TaskState) Fetch(ctx context.Context) error {
	s.begin()
	tasks, err := s.api.ListTasks(ctx, TaskQuery{})
	s.end(err, "Failed to fetch tasks")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return nil
}

// FetchOne loads a single task and makes it current.
func (s *TaskState) FetchOne(ctx context.Context, id uint) (*model.Task, error) {
	s.begin()
	task, err := s.api.GetTask(ctx, id)
	s.end(err, "Failed to fetch task")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = task
	s.mu.Unlock()
	return task, nil
}

func (s *TaskState) Create(ctx context.Context, fields Fields) (*model.Task, error) {
	s.begin()
	task, err := s.api.CreateTask(ctx, fields)
	s.end(err, "Failed to create task")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, *task)
	s.mu.Unlock()
	return task, nil
}

func (s *TaskState) Update(ctx context.Context, id uint, fields Fields) (*model.Task, error) {
	s.begin()
	task, err := s.api.UpdateTask(ctx, id, fields)
	s.end(err, "Failed to update task")
	if err != nil {
		return nil, err
	}
	s.replace(task)
	return task, nil
}

func (s *TaskState) UpdateStatus(ctx context.Context, id uint, status model.Status) (*model.Task, error) {
	s.begin()
	task, err := s.api.UpdateTaskStatus(ctx, id, status)
	s.end(err, "Failed to update task status")
	if err != nil {
		return nil, err
	}
	s.replace(task)
	return task, nil
}

func (s *TaskState) Delete(ctx context.Context, id uint) error {
	s.begin()
	err := s.api.DeleteTask(ctx, id)
	s.end(err, "Failed to delete task")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks = slices.DeleteFunc(s.tasks, func(t model.Task) bool { return t.ID == id })
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()
	return nil
}

func (s *TaskState) replace(task *model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(s.tasks, func(t model.Task) bool { return t.ID == task.ID }); i >= 0 {
		s.tasks[i] = *task
	}
	if s.current != nil && s.current.ID == task.ID {
		s.current = task
	}
}

func (s *TaskState) begin() {
	s.mu.Lock()
	s.pending++
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *TaskState) end(err error, fallback string) {
	s.mu.Lock()
	s.pending--
	if err != nil {
		s.lastErr = failure(err, fallback).Message
	}
	s.mu.Unlock()
}

// SetFilters merges the non-zero fields of f into the active filters.
func (s *TaskState) SetFilters(f TaskFilters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Status != "" {
		s.filters.Status = f.Status
	}
	if f.Priority != "" {
		s.filters.Priority = f.Priority
	}
	if f.CategoryID != 0 {
		s.filters.CategoryID = f.CategoryID
	}
	if f.Search != "" {
		s.filters.Search = f.Search
	}
}

func (s *TaskState) ClearFilters() {
	s.mu.Lock()
	s.filters = TaskFilters{}
	s.mu.Unlock()
}

func (s *TaskState) SetSorting(field, direction string) {
	if direction == "" {
		direction = "asc"
	}
	s.mu.Lock()
	s.sort = TaskSort{Field: field, Direction: direction}
	s.mu.Unlock()
}

// Reset drops every cached value, e.g. after logout.
func (s *TaskState) Reset() {
	s.mu.Lock()
	s.tasks = nil
	s.current = nil
	s.filters = TaskFilters{}
	s.sort = TaskSort{Field: "due_date", Direction: "asc"}
	s.lastErr = ""
	s.mu.Unlock()
}

// Tasks returns a copy of the cached list.
func (s *TaskState) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

func (s *TaskState) Current() *model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *TaskState) Filters() TaskFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

func (s *TaskState) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending > 0
}

// Err is the message of the last failed call, cleared when a new call starts.
func (s *TaskState) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Visible is the cached list with the active filters and sorting applied.
func (s *TaskState) Visible() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SortTasks(FilterTasks(s.tasks, s.filters), s.sort)
}

func (s *TaskState) ByStatus() map[model.Status][]model.Task {
	return GroupByStatus(s.Tasks())
}

func (s *TaskState) Overdue(now time.Time) []model.Task {
	return Overdue(s.Tasks(), now)
}

func (s *TaskState) DueSoon(now time.Time) []model.Task {
	return DueSoon(s.Tasks(), now)
}

func (s *TaskState) CountsByCategory() map[uint]int {
	return CountsByCategory(s.Tasks())
}

func (s *TaskState) CompletionRate() float64 {
	return CompletionRate(s.Tasks())
}
