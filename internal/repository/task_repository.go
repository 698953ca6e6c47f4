package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-manager/internal/model"
)

// TaskQuery narrows and orders a task listing. Zero-valued filters are ignored.
type TaskQuery struct {
	Status     model.Status
	Priority   model.Priority
	CategoryID *uint
	SortBy     string
	SortOrder  string
}

// sortColumns maps accepted sort fields to columns; true marks nullable columns.
var sortColumns = map[string]bool{
	"created_at":   false,
	"updated_at":   false,
	"title":        false,
	"status":       false,
	"priority":     false,
	"due_date":     true,
	"completed_at": true,
}

// SortableField reports whether tasks can be ordered by field.
func SortableField(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

// TaskRepository handles CRUD for tasks. Soft-deleted tasks are invisible to every method.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID loads a task regardless of owner so callers can tell absent from foreign.
func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, userID uint, q TaskQuery) ([]model.Task, error) {
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.Priority != "" {
		db = db.Where("priority = ?", q.Priority)
	}
	if q.CategoryID != nil {
		db = db.Where("category_id = ?", *q.CategoryID)
	}

	tasks := []model.Task{}
	if err := db.Order(orderClause(q.SortBy, q.SortOrder)).Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// orderClause builds an ORDER BY term from a whitelisted field. Nulls sort last
// ascending and first descending.
func orderClause(field, order string) string {
	nullable, ok := sortColumns[field]
	if !ok {
		field = "created_at"
		order = "desc"
	}
	dir := "DESC"
	if order == "asc" {
		dir = "ASC"
	}
	if !nullable {
		return field + " " + dir
	}
	if dir == "ASC" {
		return field + " ASC NULLS LAST"
	}
	return field + " DESC NULLS FIRST"
}

// UpdatedAt returns the stored version stamp of a live task.
func (r *TaskRepository) UpdatedAt(ctx context.Context, taskID uint) (time.Time, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Select("id", "updated_at").First(&task, taskID).Error; err != nil {
		return time.Time{}, err
	}
	return task.UpdatedAt, nil
}

// Save writes every mutable column of a live task. A task deleted since it was
// loaded yields gorm.ErrRecordNotFound rather than being written back.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(task).
		Select("*").
		Omit("id", "user_id", "created_at", "deleted_at", clause.Associations).
		Updates(task)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft-deletes a task owned by userID.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListForStatistics loads the columns statistics are computed from.
func (r *TaskRepository) ListForStatistics(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Select("id", "status", "priority", "due_date").
		Where("user_id = ?", userID).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
