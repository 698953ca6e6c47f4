package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCategoryService_NameUniquePerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.register(t, "alice@example.com")
	bob, _ := f.register(t, "bob@example.com")

	f.category(t, alice, "Work")

	_, err := f.categories.Create(ctx, alice, CategoryInput{Name: strPtr("Work")})
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Fields["name"]) == 0 {
		t.Fatalf("expected duplicate name validation error, got %v", err)
	}

	if _, err := f.categories.Create(ctx, bob, CategoryInput{Name: strPtr("Work")}); err != nil {
		t.Fatalf("same name for another user should succeed: %v", err)
	}
}

func TestCategoryService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "v@example.com")

	testCases := []struct {
		name  string
		input CategoryInput
		field string
	}{
		{name: "missing name", input: CategoryInput{}, field: "name"},
		{name: "blank name", input: CategoryInput{Name: strPtr("   ")}, field: "name"},
		{name: "long name", input: CategoryInput{Name: strPtr(strings.Repeat("n", 256))}, field: "name"},
		{name: "long description", input: CategoryInput{Name: strPtr("ok"), Description: strPtr(strings.Repeat("d", 1001))}, field: "description"},
		{name: "long color", input: CategoryInput{Name: strPtr("ok"), Color: strPtr(strings.Repeat("c", 21))}, field: "color"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.categories.Create(ctx, user, tc.input)
			var verr *ValidationError
			if !errors.As(err, &verr) || len(verr.Fields[tc.field]) == 0 {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestCategoryService_ListOrderedByName(t *testing.T) {
	f := newFixture(t)
	user, _ := f.register(t, "order@example.com")
	for _, name := range []string{"Shopping", "Health", "Work"} {
		f.category(t, user, name)
	}

	list, err := f.categories.List(context.Background(), user)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var names []string
	for _, c := range list {
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != "Health,Shopping,Work" {
		t.Fatalf("unexpected order: %v", names)
	}
}

func TestCategoryService_UpdateAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.register(t, "a@example.com")
	bob, _ := f.register(t, "b@example.com")
	work := f.category(t, alice, "Work")
	f.category(t, alice, "Home")

	updated, err := f.categories.Update(ctx, alice, work.ID, CategoryInput{Name: strPtr("Work"), Color: strPtr("#ff0000")})
	if err != nil {
		t.Fatalf("renaming to its own name must pass: %v", err)
	}
	if updated.Color == nil || *updated.Color != "#ff0000" {
		t.Errorf("color not updated: %v", updated.Color)
	}

	_, err = f.categories.Update(ctx, alice, work.ID, CategoryInput{Name: strPtr("Home")})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected duplicate validation error, got %v", err)
	}

	if _, err := f.categories.Get(ctx, bob, work.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign get: expected ErrNotFound, got %v", err)
	}
	if _, err := f.categories.Update(ctx, bob, work.ID, CategoryInput{Name: strPtr("Mine")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign update: expected ErrNotFound, got %v", err)
	}
	if err := f.categories.Delete(ctx, bob, work.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete: expected ErrNotFound, got %v", err)
	}
}

func TestCategoryService_ClearOptionalFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "clear@example.com")
	created, err := f.categories.Create(ctx, user, CategoryInput{
		Name:        strPtr("Errands"),
		Description: strPtr("around town"),
		Color:       strPtr("#123456"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.categories.Update(ctx, user, created.ID, CategoryInput{ClearColor: true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := f.categories.Get(ctx, user, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Color != nil {
		t.Errorf("expected color cleared, got %q", *got.Color)
	}
	if got.Description == nil || *got.Description != "around town" {
		t.Errorf("description must be untouched, got %v", got.Description)
	}
}

func TestCategoryService_DeleteBlockedByTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "del@example.com")
	busy := f.category(t, user, "Busy")
	empty := f.category(t, user, "Empty")

	for i := 0; i < 3; i++ {
		f.task(t, user, TaskInput{Title: strPtr("task"), CategoryID: uintPtr(busy.ID)})
	}

	err := f.categories.Delete(ctx, user, busy.ID)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.TaskCount != 3 {
		t.Errorf("expected 3 blocking tasks, got %d", conflict.TaskCount)
	}
	if _, err := f.categories.Get(ctx, user, busy.ID); err != nil {
		t.Errorf("blocked category must remain: %v", err)
	}

	if err := f.categories.Delete(ctx, user, empty.ID); err != nil {
		t.Fatalf("Delete empty: %v", err)
	}
	if _, err := f.categories.Get(ctx, user, empty.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected deleted category gone, got %v", err)
	}
}

func TestCategoryService_DeleteAfterTasksSoftDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "soft@example.com")
	cat := f.category(t, user, "Temp")
	task := f.task(t, user, TaskInput{Title: strPtr("gone soon"), CategoryID: uintPtr(cat.ID)})

	if err := f.tasks.Delete(ctx, user, task.ID); err != nil {
		t.Fatalf("Delete task: %v", err)
	}
	if err := f.categories.Delete(ctx, user, cat.ID); err != nil {
		t.Fatalf("category with only soft-deleted tasks should delete: %v", err)
	}
}
