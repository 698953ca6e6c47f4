package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"task-manager/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateWithToken inserts the user and its first access token atomically.
func (r *UserRepository) CreateWithToken(ctx context.Context, user *model.User, token *model.AccessToken) error {
	user.Email = normalizeEmail(user.Email)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		token.UserID = user.ID
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", normalizeEmail(email)).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

// UpdatePreferences persists the user's preference map.
func (r *UserRepository) UpdatePreferences(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Model(user).Select("preferences", "updated_at").
		Updates(user).Error; err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
