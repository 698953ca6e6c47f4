package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"task-manager/internal/api"
	"task-manager/internal/cache"
	"task-manager/internal/model"
	"task-manager/internal/repository"
	"task-manager/internal/service"
)

// newAPIServer runs the real API against an in-memory database.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:client_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	categoryRepo := repository.NewCategoryRepository(db)
	auth := service.NewAuthService(repository.NewUserRepository(db), repository.NewTokenRepository(db),
		service.AuthConfig{Secret: []byte("client-test"), BcryptCost: bcrypt.MinCost})
	h := api.NewHandler(auth, service.NewCategoryService(categoryRepo),
		service.NewTaskService(repository.NewTaskRepository(db), categoryRepo, cache.Nop{}), 5*time.Second)

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return srv
}

func TestSession_LoginPersistsToken(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	store := &MemoryTokenStore{}

	s := NewSession(New(srv.URL+"/api", srv.Client()), store)
	if s.IsAuthenticated() {
		t.Fatal("fresh session must not be authenticated")
	}

	res := s.Register(ctx, "Ann", "ann@example.com", "secret123", "secret124")
	if res.Success || len(res.Errors["password"]) == 0 {
		t.Fatalf("expected mismatch failure with field errors, got %+v", res)
	}

	if res := s.Register(ctx, "Ann", "ann@example.com", "secret123", "secret123"); !res.Success {
		t.Fatalf("register: %+v", res)
	}
	if !s.IsAuthenticated() || s.User() == nil || s.User().Email != "ann@example.com" {
		t.Fatalf("expected authenticated session, user %+v", s.User())
	}

	if res := s.Login(ctx, "ann@example.com", "nope-nope1", false); res.Success || res.Message != "Invalid login credentials" {
		t.Fatalf("expected invalid credentials, got %+v", res)
	}

	// A new session restores the token from durable storage.
	restored := NewSession(New(srv.URL+"/api", srv.Client()), store)
	if !restored.IsAuthenticated() {
		t.Fatal("token should be restored from the store")
	}
	if res := restored.FetchUser(ctx); !res.Success || restored.User().Name != "Ann" {
		t.Fatalf("fetch user: %+v", res)
	}

	if res := restored.Logout(ctx); !res.Success {
		t.Fatalf("logout: %+v", res)
	}
	if tok, _ := store.Load(); tok != "" || restored.IsAuthenticated() {
		t.Fatal("logout must clear the stored token")
	}

	// The first session still holds the revoked token; fetching the user ends it.
	if res := s.FetchUser(ctx); res.Success {
		t.Fatal("revoked token must fail")
	}
	if s.IsAuthenticated() {
		t.Fatal("rejected token must end the session")
	}
}

func TestTaskAndCategoryState(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	s := NewSession(New(srv.URL+"/api", srv.Client()), nil)
	if res := s.Register(ctx, "Bo", "bo@example.com", "secret123", "secret123"); !res.Success {
		t.Fatalf("register: %+v", res)
	}

	categories := NewCategoryState(s.API())
	tasks := NewTaskState(s.API())

	home, err := categories.Create(ctx, Fields{"name": "Home"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := categories.Create(ctx, Fields{"name": "Home"}); err == nil {
		t.Fatal("duplicate category must fail")
	}
	if len(categories.Categories()) != 1 || categories.Err() == "" {
		t.Fatalf("failed create must not touch the cache and must record the error")
	}

	milk, err := tasks.Create(ctx, Fields{"title": "Buy milk", "priority": "high", "category_id": home.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := tasks.Create(ctx, Fields{"title": "Dishes", "category_id": home.ID}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if milk.Status != model.StatusPending {
		t.Errorf("expected pending default, got %s", milk.Status)
	}

	if _, err := tasks.UpdateStatus(ctx, milk.ID, model.StatusCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if rate := tasks.CompletionRate(); rate != 50 {
		t.Errorf("expected completion rate 50, got %v", rate)
	}

	err = categories.Delete(ctx, home.ID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.TasksCount != 2 {
		t.Fatalf("expected blocked delete with 2 tasks, got %v", err)
	}
	if categories.ByID(home.ID) == nil {
		t.Fatal("blocked delete must keep the cached category")
	}

	if err := tasks.Fetch(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	tasks.SetFilters(TaskFilters{Search: "MILK"})
	if visible := tasks.Visible(); len(visible) != 1 || visible[0].ID != milk.ID {
		t.Errorf("expected only milk visible, got %v", ids(visible))
	}
	if name := categories.Name(milk.CategoryID); name != "Home" {
		t.Errorf("expected Home, got %q", name)
	}

	if err := tasks.Delete(ctx, milk.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(tasks.Tasks()) != 1 {
		t.Errorf("expected one cached task after delete, got %d", len(tasks.Tasks()))
	}
}

// Overlapping updates to one task are not ordered: whichever response
// arrives last is what the cache holds.
func TestTaskState_LastResponseWins(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tasks":
			json.NewEncoder(w).Encode(map[string]any{"tasks": []model.Task{{ID: 1, Title: "race", Status: model.StatusPending}}})
		case r.Method == http.MethodPatch && r.URL.Path == "/tasks/1/status":
			var body struct {
				Status model.Status `json:"status"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if body.Status == model.StatusCompleted {
				close(arrived)
				<-release
			}
			json.NewEncoder(w).Encode(map[string]any{"task": model.Task{ID: 1, Title: "race", Status: body.Status}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	state := NewTaskState(New(srv.URL, srv.Client()))
	if err := state.Fetch(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := state.UpdateStatus(ctx, 1, model.StatusCompleted); err != nil {
			t.Errorf("slow update: %v", err)
		}
	}()

	<-arrived
	if _, err := state.UpdateStatus(ctx, 1, model.StatusInProgress); err != nil {
		t.Fatalf("fast update: %v", err)
	}
	if got := state.Tasks()[0].Status; got != model.StatusInProgress {
		t.Fatalf("expected in_progress after fast update, got %s", got)
	}

	close(release)
	wg.Wait()
	if got := state.Tasks()[0].Status; got != model.StatusCompleted {
		t.Fatalf("expected the later response to win, got %s", got)
	}
}
