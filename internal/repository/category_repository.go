package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	categories := []model.Category{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindByID returns the category only when it belongs to userID.
func (r *CategoryRepository) FindByID(ctx context.Context, userID, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// NameTaken reports whether userID already has a category called name, ignoring excludeID.
func (r *CategoryRepository) NameTaken(ctx context.Context, userID uint, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Category{}).Where("user_id = ? AND name = ?", userID, name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return count > 0, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Save(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// DeleteIfUnused removes the category unless live tasks still reference it.
// It returns the number of blocking tasks; the category is deleted only when that is zero.
// Soft-deleted tasks that still point at the category are detached in the same transaction.
func (r *CategoryRepository) DeleteIfUnused(ctx context.Context, userID, id uint) (int64, error) {
	var blocking int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).Where("category_id = ?", id).Count(&blocking).Error; err != nil {
			return fmt.Errorf("count category tasks: %w", err)
		}
		if blocking > 0 {
			return nil
		}
		if err := tx.Unscoped().Model(&model.Task{}).
			Where("category_id = ? AND deleted_at IS NOT NULL", id).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach deleted tasks: %w", err)
		}
		res := tx.Where("user_id = ? AND id = ?", userID, id).Delete(&model.Category{})
		if res.Error != nil {
			return fmt.Errorf("delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return blocking, err
}
