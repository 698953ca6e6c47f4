package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "taken@example.com")

	testCases := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{
			name:  "missing name",
			input: RegisterInput{Email: "a@example.com", Password: "password123", PasswordConfirmation: "password123"},
			field: "name",
		},
		{
			name:  "invalid email",
			input: RegisterInput{Name: "A", Email: "not-an-email", Password: "password123", PasswordConfirmation: "password123"},
			field: "email",
		},
		{
			name:  "duplicate email",
			input: RegisterInput{Name: "A", Email: "TAKEN@example.com", Password: "password123", PasswordConfirmation: "password123"},
			field: "email",
		},
		{
			name:  "short password",
			input: RegisterInput{Name: "A", Email: "a@example.com", Password: "pw1", PasswordConfirmation: "pw1"},
			field: "password",
		},
		{
			name:  "password without digit",
			input: RegisterInput{Name: "A", Email: "a@example.com", Password: "passwordonly", PasswordConfirmation: "passwordonly"},
			field: "password",
		},
		{
			name:  "confirmation mismatch",
			input: RegisterInput{Name: "A", Email: "a@example.com", Password: "password123", PasswordConfirmation: "password124"},
			field: "password",
		},
		{
			name:  "missing confirmation",
			input: RegisterInput{Name: "A", Email: "a@example.com", Password: "password123"},
			field: "password_confirmation",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.auth.Register(ctx, tc.input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields[tc.field]) == 0 {
				t.Errorf("expected message for %q, got %v", tc.field, verr.Fields)
			}
		})
	}
}

func TestAuthService_RegisterIssuesToken(t *testing.T) {
	f := newFixture(t)
	user, token := f.register(t, "new@example.com")

	if user.ID == 0 || user.PasswordHash == "" || user.PasswordHash == "password123" {
		t.Fatalf("unexpected user: %+v", user)
	}
	resolved, err := f.auth.ResolveUser(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if resolved.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, resolved.ID)
	}
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "login@example.com")

	for i := 0; i < 5; i++ {
		_, token, err := f.auth.Login(ctx, LoginInput{Email: "login@example.com", Password: "wrong-password1"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
		if token != "" {
			t.Fatalf("attempt %d: failed login must not issue a token", i)
		}
	}
	if n, _ := f.tokenRepo.CountByUser(ctx, user.ID); n != 1 {
		t.Fatalf("expected only the registration token, got %d", n)
	}

	if _, _, err := f.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	got, token, err := f.auth.Login(ctx, LoginInput{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login after failures: %v", err)
	}
	if got.ID != user.ID || token == "" {
		t.Fatalf("unexpected login result: user=%d token=%q", got.ID, token)
	}
	if n, _ := f.tokenRepo.CountByUser(ctx, user.ID); n != 2 {
		t.Fatalf("expected concurrent tokens to be kept, got %d", n)
	}
}

func TestAuthService_LoginRevokePrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, first := f.register(t, "revoke@example.com")

	_, second, err := f.auth.Login(ctx, LoginInput{Email: "revoke@example.com", Password: "password123", RevokePrevious: true})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := f.auth.ResolveUser(ctx, first); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected earlier token revoked, got %v", err)
	}
	if _, err := f.auth.ResolveUser(ctx, second); err != nil {
		t.Errorf("new token should resolve: %v", err)
	}
	if n, _ := f.tokenRepo.CountByUser(ctx, user.ID); n != 1 {
		t.Errorf("expected one token, got %d", n)
	}
}

func TestAuthService_LogoutAndRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, token := f.register(t, "session@example.com")

	refreshed, err := f.auth.Refresh(ctx, token)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed == token {
		t.Fatal("refresh must issue a different token")
	}
	if _, err := f.auth.ResolveUser(ctx, token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("refreshed-away token should be revoked, got %v", err)
	}
	if _, err := f.auth.Refresh(ctx, token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("refresh with revoked token: expected ErrUnauthenticated, got %v", err)
	}

	if err := f.auth.Logout(ctx, refreshed); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := f.auth.Logout(ctx, refreshed); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("second logout: expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthService_ResolveRejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, token := f.register(t, "bad@example.com")

	other := NewAuthService(f.userRepo, f.tokenRepo, AuthConfig{Secret: []byte("other-secret")})
	for name, tok := range map[string]string{
		"empty":        "",
		"malformed":    "not-a-token",
		"wrong secret": token,
	} {
		svc := f.auth
		if name == "wrong secret" {
			svc = other
		}
		if _, err := svc.ResolveUser(ctx, tok); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestAuthService_TokenExpiryAndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.auth.cfg.TokenTTL = time.Hour
	user, token := f.register(t, "ttl@example.com")

	if _, err := f.auth.ResolveUser(ctx, token); err != nil {
		t.Fatalf("fresh token: %v", err)
	}

	f.auth.SetClock(func() time.Time { return testNow.Add(2 * time.Hour) })
	if _, err := f.auth.ResolveUser(ctx, token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired token: expected ErrUnauthenticated, got %v", err)
	}

	n, err := f.auth.PurgeExpiredTokens(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged token, got %d", n)
	}
	if c, _ := f.tokenRepo.CountByUser(ctx, user.ID); c != 0 {
		t.Errorf("expected no tokens left, got %d", c)
	}
}

func TestAuthService_UpdatePreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "prefs@example.com")

	if _, err := f.auth.UpdatePreferences(ctx, user, map[string]any{"theme": "dark", "page_size": float64(20)}); err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	reloaded, err := f.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if reloaded.Preference("theme", "") != "dark" {
		t.Errorf("expected theme dark, got %v", reloaded.Preferences)
	}
	if reloaded.Preference("page_size", nil) != float64(20) {
		t.Errorf("expected page_size 20, got %v", reloaded.Preferences)
	}
}
