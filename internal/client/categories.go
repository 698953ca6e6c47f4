package client

import (
	"context"
	"slices"
	"sync"

	"task-manager/internal/model"
)

// CategoryState caches the user's categories with the same
// mutate-after-success rule as TaskState.
type CategoryState struct {
	api *Client

	mu         sync.RWMutex
	categories []model.Category
	current    *model.Category
	lastErr    string
}

func NewCategoryState(api *Client) *CategoryState {
	return &CategoryState{api: api}
}

func (s *CategoryState) Fetch(ctx context.Context) error {
	categories, err := s.api.ListCategories(ctx)
	if err != nil {
		s.fail(err, "Failed to fetch categories")
		return err
	}
	s.mu.Lock()
	s.categories = categories
	s.lastErr = ""
	s.mu.Unlock()
	return nil
}

func (s *CategoryState) FetchOne(ctx context.Context, id uint) (*model.Category, error) {
	category, err := s.api.GetCategory(ctx, id)
	if err != nil {
		s.fail(err, "Failed to fetch category")
		return nil, err
	}
	s.mu.Lock()
	s.current = category
	s.mu.Unlock()
	return category, nil
}

func (s *CategoryState) Create(ctx context.Context, fields Fields) (*model.Category, error) {
	category, err := s.api.CreateCategory(ctx, fields)
	if err != nil {
		s.fail(err, "Failed to create category")
		return nil, err
	}
	s.mu.Lock()
	s.categories = append(s.categories, *category)
	s.mu.Unlock()
	return category, nil
}

func (s *CategoryState) Update(ctx context.Context, id uint, fields Fields) (*model.Category, error) {
	category, err := s.api.UpdateCategory(ctx, id, fields)
	if err != nil {
		s.fail(err, "Failed to update category")
		return nil, err
	}
	s.mu.Lock()
	if i := slices.IndexFunc(s.categories, func(c model.Category) bool { return c.ID == id }); i >= 0 {
		s.categories[i] = *category
	}
	if s.current != nil && s.current.ID == id {
		s.current = category
	}
	s.mu.Unlock()
	return category, nil
}

// Delete removes the category. A category that still has tasks is rejected
// by the API with an *APIError carrying TasksCount.
func (s *CategoryState) Delete(ctx context.Context, id uint) error {
	if err := s.api.DeleteCategory(ctx, id); err != nil {
		s.fail(err, "Failed to delete category")
		return err
	}
	s.mu.Lock()
	s.categories = slices.DeleteFunc(s.categories, func(c model.Category) bool { return c.ID == id })
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()
	return nil
}

func (s *CategoryState) fail(err error, fallback string) {
	s.mu.Lock()
	s.lastErr = failure(err, fallback).Message
	s.mu.Unlock()
}

func (s *CategoryState) Reset() {
	s.mu.Lock()
	s.categories = nil
	s.current = nil
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *CategoryState) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

func (s *CategoryState) Current() *model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *CategoryState) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ByID returns the cached category or nil.
func (s *CategoryState) ByID(id uint) *model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.categories {
		if s.categories[i].ID == id {
			c := s.categories[i]
			return &c
		}
	}
	return nil
}

func (s *CategoryState) Name(id *uint) string {
	return CategoryName(s.Categories(), id)
}

func (s *CategoryState) WithCounts(tasks []model.Task) []CategoryCount {
	return CategoriesWithCounts(s.Categories(), tasks)
}
