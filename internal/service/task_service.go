package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"task-manager/internal/cache"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// ListParams are the raw filter and sort parameters of a task listing.
// Empty strings mean "not supplied".
type ListParams struct {
	Status     string
	Priority   string
	CategoryID string
	SortBy     string
	SortOrder  string
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	cache        cache.TaskCache
	now          func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, c cache.TaskCache) *TaskService {
	if c == nil {
		c = cache.Nop{}
	}
	return &TaskService{taskRepo: taskRepo, categoryRepo: categoryRepo, cache: c, now: time.Now}
}

// SetClock replaces the time source.
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

// List returns the user's tasks matching every supplied filter, newest first unless sorted otherwise.
func (s *TaskService) List(ctx context.Context, user *model.User, p ListParams) ([]model.Task, error) {
	q, err := parseListParams(p)
	if err != nil {
		return nil, err
	}
	return s.taskRepo.List(ctx, user.ID, q)
}

func parseListParams(p ListParams) (repository.TaskQuery, error) {
	v := &ValidationError{}
	q := repository.TaskQuery{SortBy: "created_at", SortOrder: "desc"}

	if p.Status != "" {
		if !model.Status(p.Status).Valid() {
			v.Add("status", "The selected status is invalid.")
		}
		q.Status = model.Status(p.Status)
	}
	if p.Priority != "" {
		if !model.Priority(p.Priority).Valid() {
			v.Add("priority", "The selected priority is invalid.")
		}
		q.Priority = model.Priority(p.Priority)
	}
	if p.CategoryID != "" {
		id, err := strconv.ParseUint(p.CategoryID, 10, 64)
		if err != nil {
			v.Add("category_id", "The category id must be an integer.")
		} else {
			cid := uint(id)
			q.CategoryID = &cid
		}
	}
	if p.SortBy != "" {
		if !repository.SortableField(p.SortBy) {
			v.Add("sort_by", "The selected sort by is invalid.")
		}
		q.SortBy = p.SortBy
	}
	if p.SortOrder != "" {
		order := strings.ToLower(p.SortOrder)
		if order != "asc" && order != "desc" {
			v.Add("sort_order", "The selected sort order is invalid.")
		}
		q.SortOrder = order
	}
	return q, v.Err()
}

// Get returns a task of the user. Tasks owned by someone else yield ErrForbidden.
func (s *TaskService) Get(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	if task, ok := s.cache.Get(ctx, taskID); ok {
		fresh, err := s.cachedIsCurrent(ctx, task)
		if err != nil {
			return nil, err
		}
		if fresh {
			if task.UserID != user.ID {
				return nil, ErrForbidden
			}
			return task, nil
		}
	}
	task, err := s.loadOwned(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, task)
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, user *model.User, in TaskInput) (*model.Task, error) {
	v := validateTask(in, true)
	if err := s.checkCategory(ctx, user, in, v); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	task := &model.Task{
		UserID:      user.ID,
		Title:       strings.TrimSpace(*in.Title),
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Priority:    model.PriorityMedium,
		DueDate:     utc(in.DueDate),
	}
	if in.Priority != nil {
		task.Priority = model.Priority(*in.Priority)
	}
	status := model.StatusPending
	if in.Status != nil {
		status = model.Status(*in.Status)
	}
	task.SetStatus(status, s.now().UTC())

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	log.Printf("[info] task created id=%d user=%d", task.ID, user.ID)
	return task, nil
}

// Update changes only the supplied fields.
func (s *TaskService) Update(ctx context.Context, user *model.User, taskID uint, in TaskInput) (*model.Task, error) {
	task, err := s.loadOwned(ctx, user, taskID)
	if err != nil {
		return nil, err
	}

	v := validateTask(in, false)
	if err := s.checkCategory(ctx, user, in, v); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
	}
	switch {
	case in.ClearDesc:
		task.Description = nil
	case in.Description != nil:
		task.Description = in.Description
	}
	switch {
	case in.ClearDueDate:
		task.DueDate = nil
	case in.DueDate != nil:
		task.DueDate = utc(in.DueDate)
	}
	switch {
	case in.ClearCategory:
		task.CategoryID = nil
	case in.CategoryID != nil:
		task.CategoryID = in.CategoryID
	}
	if in.Priority != nil {
		task.Priority = model.Priority(*in.Priority)
	}
	if in.Status != nil {
		task.SetStatus(model.Status(*in.Status), s.now().UTC())
	}

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, task.ID)
	return task, nil
}

// UpdateStatus transitions the task and maintains its completion timestamp.
func (s *TaskService) UpdateStatus(ctx context.Context, user *model.User, taskID uint, status string) (*model.Task, error) {
	task, err := s.loadOwned(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if err := validateStatus(status).Err(); err != nil {
		return nil, err
	}

	task.SetStatus(model.Status(status), s.now().UTC())
	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, task.ID)
	log.Printf("[info] task status id=%d user=%d status=%s", task.ID, user.ID, status)
	return task, nil
}

// Delete soft-deletes the task.
func (s *TaskService) Delete(ctx context.Context, user *model.User, taskID uint) error {
	if _, err := s.loadOwned(ctx, user, taskID); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, user.ID, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.cache.Invalidate(ctx, taskID)
	log.Printf("[info] task deleted id=%d user=%d", taskID, user.ID)
	return nil
}

// Statistics summarises the user's live tasks.
func (s *TaskService) Statistics(ctx context.Context, user *model.User) (Statistics, error) {
	tasks, err := s.taskRepo.ListForStatistics(ctx, user.ID)
	if err != nil {
		return Statistics{}, fmt.Errorf("load statistics: %w", err)
	}
	return ComputeStatistics(tasks, s.now().UTC()), nil
}

func (s *TaskService) saveTask(ctx context.Context, task *model.Task) error {
	if err := s.taskRepo.Save(ctx, task); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.cache.Invalidate(ctx, task.ID)
			return ErrNotFound
		}
		return err
	}
	return nil
}

// cachedIsCurrent compares a cached task with the stored version and drops the
// entry when the task changed or was deleted after it was cached.
func (s *TaskService) cachedIsCurrent(ctx context.Context, task *model.Task) (bool, error) {
	updatedAt, err := s.taskRepo.UpdatedAt(ctx, task.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.cache.Invalidate(ctx, task.ID)
			return false, ErrNotFound
		}
		return false, err
	}
	if !updatedAt.Equal(task.UpdatedAt) {
		s.cache.Invalidate(ctx, task.ID)
		return false, nil
	}
	return true, nil
}

func (s *TaskService) loadOwned(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.UserID != user.ID {
		return nil, ErrForbidden
	}
	return task, nil
}

// checkCategory rejects a category_id that does not belong to the user.
func (s *TaskService) checkCategory(ctx context.Context, user *model.User, in TaskInput, v *ValidationError) error {
	if in.CategoryID == nil || in.ClearCategory {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, user.ID, *in.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			v.Add("category_id", "The selected category id is invalid.")
			return nil
		}
		return err
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
