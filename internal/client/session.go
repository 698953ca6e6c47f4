package client

import (
	"context"
	"errors"
	"log"
	"sync"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

// Result is the outcome of a session action. Failures never panic or
// return errors; they carry the API's message instead.
type Result struct {
	Success bool
	Message string
	Errors  map[string][]string
}

func failure(err error, fallback string) Result {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return Result{Message: msg, Errors: apiErr.Errors}
	}
	return Result{Message: fallback}
}

// Session is the authenticated identity of one client: the bearer token,
// its durable storage and the current user.
type Session struct {
	api   *Client
	store TokenStore

	mu   sync.RWMutex
	user *model.User
}

// NewSession restores a previously saved token from store.
func NewSession(api *Client, store TokenStore) *Session {
	if store == nil {
		store = &MemoryTokenStore{}
	}
	token, err := store.Load()
	if err != nil {
		log.Printf("[warn] load token: %v", err)
	}
	api.SetToken(token)
	return &Session{api: api, store: store}
}

// API returns the client bound to this session's token.
func (s *Session) API() *Client {
	return s.api
}

// IsAuthenticated reports whether a token is held. It does not contact the API.
func (s *Session) IsAuthenticated() bool {
	return s.api.Token() != ""
}

// User returns the last fetched user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Login(ctx context.Context, email, password string, revokePrevious bool) Result {
	user, token, err := s.api.Login(ctx, service.LoginInput{Email: email, Password: password, RevokePrevious: revokePrevious})
	if err != nil {
		return failure(err, "Login failed")
	}
	s.signedIn(user, token)
	return Result{Success: true, Message: "Login successful"}
}

func (s *Session) Register(ctx context.Context, name, email, password, passwordConfirmation string) Result {
	user, token, err := s.api.Register(ctx, service.RegisterInput{
		Name:                 name,
		Email:                email,
		Password:             password,
		PasswordConfirmation: passwordConfirmation,
	})
	if err != nil {
		return failure(err, "Registration failed")
	}
	s.signedIn(user, token)
	return Result{Success: true, Message: "Registration successful"}
}

// Logout revokes the token on the server and always forgets it locally,
// even when the server call fails.
func (s *Session) Logout(ctx context.Context) Result {
	if s.IsAuthenticated() {
		if err := s.api.Logout(ctx); err != nil {
			log.Printf("[warn] logout: %v", err)
		}
	}
	s.signedOut()
	return Result{Success: true, Message: "Logged out successfully"}
}

// Refresh swaps the held token for a new one.
func (s *Session) Refresh(ctx context.Context) Result {
	token, err := s.api.Refresh(ctx)
	if err != nil {
		s.dropIfRejected(err)
		return failure(err, "Failed to refresh token")
	}
	s.api.SetToken(token)
	if err := s.store.Save(token); err != nil {
		log.Printf("[warn] save token: %v", err)
	}
	return Result{Success: true, Message: "Token refreshed successfully"}
}

// FetchUser loads the current user. A rejected token ends the session.
func (s *Session) FetchUser(ctx context.Context) Result {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		s.dropIfRejected(err)
		return failure(err, "Failed to retrieve profile")
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return Result{Success: true}
}

func (s *Session) signedIn(user *model.User, token string) {
	s.api.SetToken(token)
	if err := s.store.Save(token); err != nil {
		log.Printf("[warn] save token: %v", err)
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

func (s *Session) signedOut() {
	s.api.SetToken("")
	if err := s.store.Clear(); err != nil {
		log.Printf("[warn] clear token: %v", err)
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

func (s *Session) dropIfRejected(err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Unauthenticated() {
		s.signedOut()
	}
}
