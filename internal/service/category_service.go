package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// CategoryService manages the categories of a single owner.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns the user's categories ordered by name.
func (s *CategoryService) List(ctx context.Context, user *model.User) ([]model.Category, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

func (s *CategoryService) Get(ctx context.Context, user *model.User, id uint) (*model.Category, error) {
	category, err := s.repo.FindByID(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, user *model.User, in CategoryInput) (*model.Category, error) {
	v := validateCategory(in, true)
	if err := s.checkName(ctx, user.ID, in.Name, 0, v); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	category := &model.Category{
		UserID:      user.ID,
		Name:        strings.TrimSpace(*in.Name),
		Description: in.Description,
		Color:       in.Color,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, duplicateName(err, v, "You already have a category with this name.")
	}
	log.Printf("[info] category created id=%d user=%d", category.ID, user.ID)
	return category, nil
}

// Update changes only the supplied fields.
func (s *CategoryService) Update(ctx context.Context, user *model.User, id uint, in CategoryInput) (*model.Category, error) {
	category, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}

	v := validateCategory(in, false)
	if err := s.checkName(ctx, user.ID, in.Name, id, v); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if in.Name != nil {
		category.Name = strings.TrimSpace(*in.Name)
	}
	switch {
	case in.ClearDescription:
		category.Description = nil
	case in.Description != nil:
		category.Description = in.Description
	}
	switch {
	case in.ClearColor:
		category.Color = nil
	case in.Color != nil:
		category.Color = in.Color
	}
	if err := s.repo.Save(ctx, category); err != nil {
		return nil, duplicateName(err, v, "You already have a different category with this name.")
	}
	return category, nil
}

// Delete removes the category, or fails with a ConflictError while tasks use it.
func (s *CategoryService) Delete(ctx context.Context, user *model.User, id uint) error {
	if _, err := s.Get(ctx, user, id); err != nil {
		return err
	}
	blocking, err := s.repo.DeleteIfUnused(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if blocking > 0 {
		return &ConflictError{Message: "Cannot delete category that contains tasks", TaskCount: blocking}
	}
	log.Printf("[info] category deleted id=%d user=%d", id, user.ID)
	return nil
}

// checkName adds a uniqueness message to v when name is already used by another category.
func (s *CategoryService) checkName(ctx context.Context, userID uint, name *string, excludeID uint, v *ValidationError) error {
	if name == nil || len(v.Fields["name"]) > 0 {
		return nil
	}
	taken, err := s.repo.NameTaken(ctx, userID, strings.TrimSpace(*name), excludeID)
	if err != nil {
		return err
	}
	if taken {
		if excludeID == 0 {
			v.Add("name", "You already have a category with this name.")
		} else {
			v.Add("name", "You already have a different category with this name.")
		}
	}
	return nil
}

// duplicateName turns a unique-index violation that slipped past checkName into a validation error.
func duplicateName(err error, v *ValidationError, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		v.Add("name", msg)
		return v
	}
	return err
}
