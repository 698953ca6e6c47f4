package api

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"task-manager/internal/service"
)

// Handler serves the JSON API on top of the services.
type Handler struct {
	auth       *service.AuthService
	categories *service.CategoryService
	tasks      *service.TaskService
	timeout    time.Duration
}

func NewHandler(auth *service.AuthService, categories *service.CategoryService, tasks *service.TaskService, timeout time.Duration) *Handler {
	return &Handler{auth: auth, categories: categories, tasks: tasks, timeout: timeout}
}

// methods dispatches one path by request method. Each path is registered once
// so a wrong method yields 405 with an Allow header instead of falling through
// to the not-found handler.
type methods map[string]http.Handler

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h.ServeHTTP(w, r)
		return
	}
	allowed := make([]string, 0, len(m))
	for method := range m {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, envelope{"success": false, "message": "Method not allowed"})
}

// NewRouter mounts the API under /api and a liveness check at /health.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{"success": false, "message": "Route not found"})
	})

	r.Handle("/health", methods{http.MethodGet: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{"status": "ok"})
	})})

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.withTimeout)

	api.Handle("/register", methods{http.MethodPost: http.HandlerFunc(h.register)})
	api.Handle("/login", methods{http.MethodPost: http.HandlerFunc(h.login)})
	api.Handle("/logout", methods{http.MethodPost: h.requireAuth(h.logout)})
	api.Handle("/refresh", methods{http.MethodPost: h.requireAuth(h.refresh)})
	api.Handle("/user", methods{http.MethodGet: h.requireAuth(h.profile)})
	api.Handle("/user/preferences", methods{http.MethodPatch: h.requireAuth(h.updatePreferences)})

	api.Handle("/tasks", methods{
		http.MethodGet:  h.requireAuth(h.listTasks),
		http.MethodPost: h.requireAuth(h.createTask),
	})
	api.Handle("/tasks/statistics", methods{http.MethodGet: h.requireAuth(h.taskStatistics)})
	api.Handle("/tasks/{id:[0-9]+}", methods{
		http.MethodGet:    h.requireAuth(h.getTask),
		http.MethodPut:    h.requireAuth(h.updateTask),
		http.MethodDelete: h.requireAuth(h.deleteTask),
	})
	api.Handle("/tasks/{id:[0-9]+}/status", methods{http.MethodPatch: h.requireAuth(h.updateTaskStatus)})

	api.Handle("/categories", methods{
		http.MethodGet:  h.requireAuth(h.listCategories),
		http.MethodPost: h.requireAuth(h.createCategory),
	})
	api.Handle("/categories/{id:[0-9]+}", methods{
		http.MethodGet:    h.requireAuth(h.getCategory),
		http.MethodPut:    h.requireAuth(h.updateCategory),
		http.MethodDelete: h.requireAuth(h.deleteCategory),
	})

	return r
}
