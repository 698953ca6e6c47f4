package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"task-manager/internal/cache"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db         *gorm.DB
	auth       *AuthService
	categories *CategoryService
	tasks      *TaskService
	taskRepo   *repository.TaskRepository
	tokenRepo  *repository.TokenRepository
	userRepo   *repository.UserRepository
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	tokens := repository.NewTokenRepository(db)
	categories := repository.NewCategoryRepository(db)
	tasks := repository.NewTaskRepository(db)

	f := &fixture{
		db:         db,
		auth:       NewAuthService(users, tokens, AuthConfig{Secret: []byte("test-secret"), BcryptCost: bcrypt.MinCost}),
		categories: NewCategoryService(categories),
		tasks:      NewTaskService(tasks, categories, cache.Nop{}),
		taskRepo:   tasks,
		tokenRepo:  tokens,
		userRepo:   users,
	}
	clock := func() time.Time { return testNow }
	f.auth.SetClock(clock)
	f.tasks.SetClock(clock)
	return f
}

func (f *fixture) register(t *testing.T, email string) (*model.User, string) {
	t.Helper()
	user, token, err := f.auth.Register(context.Background(), RegisterInput{
		Name:                 "Test User",
		Email:                email,
		Password:             "password123",
		PasswordConfirmation: "password123",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return user, token
}

func (f *fixture) category(t *testing.T, user *model.User, name string) *model.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), user, CategoryInput{Name: &name})
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return c
}

func (f *fixture) task(t *testing.T, user *model.User, in TaskInput) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), user, in)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func strPtr(s string) *string { return &s }

func uintPtr(u uint) *uint { return &u }

func timePtr(t time.Time) *time.Time { return &t }
