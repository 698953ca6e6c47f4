// Package client talks to the task API and keeps the caller-side state
// derived from it: the authenticated session and cached task and category lists.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status     int
	Message    string
	Errors     map[string][]string
	TasksCount int64
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Unauthenticated reports whether the API rejected the bearer token.
func (e *APIError) Unauthenticated() bool {
	return e.Status == http.StatusUnauthorized
}

// Fields is a create or update payload. A nil value is sent as JSON null,
// which clears the field on update.
type Fields map[string]any

// TaskQuery is the server-side filter and sort of a task listing.
type TaskQuery struct {
	Status     model.Status
	Priority   model.Priority
	CategoryID uint
	SortBy     string
	SortOrder  string
}

func (q TaskQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Priority != "" {
		v.Set("priority", string(q.Priority))
	}
	if q.CategoryID != 0 {
		v.Set("category_id", strconv.FormatUint(uint64(q.CategoryID), 10))
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sort_order", q.SortOrder)
	}
	return v
}

// Client is a thin JSON client for the task API. It attaches the current
// bearer token to every request.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL, e.g. http://localhost:8080/api.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type authResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

func (c *Client) Register(ctx context.Context, in service.RegisterInput) (*model.User, string, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/register", in, &out); err != nil {
		return nil, "", err
	}
	return &out.User, out.Token, nil
}

func (c *Client) Login(ctx context.Context, in service.LoginInput) (*model.User, string, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/login", in, &out); err != nil {
		return nil, "", err
	}
	return &out.User, out.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

func (c *Client) Refresh(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/refresh", nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdatePreferences(ctx context.Context, prefs Fields) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPatch, "/user/preferences", prefs, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

type taskResponse struct {
	Task model.Task `json:"task"`
}

func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	path := "/tasks"
	if v := q.values(); len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out struct {
		Tasks []model.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	var out taskResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

func (c *Client) CreateTask(ctx context.Context, fields Fields) (*model.Task, error) {
	var out taskResponse
	if err := c.do(ctx, http.MethodPost, "/tasks", fields, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id uint, fields Fields) (*model.Task, error) {
	var out taskResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), fields, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id uint, status model.Status) (*model.Task, error) {
	var out taskResponse
	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d/status", id), body, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil)
}

func (c *Client) Statistics(ctx context.Context) (service.Statistics, error) {
	var out struct {
		Statistics service.Statistics `json:"statistics"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks/statistics", nil, &out); err != nil {
		return service.Statistics{}, err
	}
	return out.Statistics, nil
}

type categoryResponse struct {
	Category model.Category `json:"category"`
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out struct {
		Categories []model.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) GetCategory(ctx context.Context, id uint) (*model.Category, error) {
	var out categoryResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/categories/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Category, nil
}

func (c *Client) CreateCategory(ctx context.Context, fields Fields) (*model.Category, error) {
	var out categoryResponse
	if err := c.do(ctx, http.MethodPost, "/categories", fields, &out); err != nil {
		return nil, err
	}
	return &out.Category, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id uint, fields Fields) (*model.Category, error) {
	var out categoryResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), fields, &out); err != nil {
		return nil, err
	}
	return &out.Category, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message    string              `json:"message"`
			Errors     map[string][]string `json:"errors"`
			TasksCount int64               `json:"tasks_count"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Message
			apiErr.Errors = payload.Errors
			apiErr.TasksCount = payload.TasksCount
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
