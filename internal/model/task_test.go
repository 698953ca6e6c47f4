package model

import (
	"testing"
	"time"
)

func TestTask_SetStatusTracksCompletion(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	task := Task{Status: StatusPending}

	task.SetStatus(StatusCompleted, now)
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Fatalf("expected completed_at %v, got %v", now, task.CompletedAt)
	}

	// Re-completing keeps the first timestamp.
	task.SetStatus(StatusCompleted, now.Add(time.Hour))
	if !task.CompletedAt.Equal(now) {
		t.Fatalf("expected completed_at to stay %v, got %v", now, task.CompletedAt)
	}

	task.SetStatus(StatusInProgress, now)
	if task.CompletedAt != nil {
		t.Fatalf("expected completed_at cleared, got %v", task.CompletedAt)
	}
	if task.Status != StatusInProgress {
		t.Fatalf("expected status in_progress, got %s", task.Status)
	}
}

func TestEnumerationsValid(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	for _, p := range Priorities {
		if !p.Valid() {
			t.Errorf("priority %q should be valid", p)
		}
	}
	if Status("done").Valid() {
		t.Error("status done should be invalid")
	}
	if Priority("urgent").Valid() {
		t.Error("priority urgent should be invalid")
	}
}

func TestUser_MergePreferences(t *testing.T) {
	u := User{}
	u.MergePreferences(map[string]any{"theme": "dark", "lang": "en"})
	u.MergePreferences(map[string]any{"lang": nil})

	if got := u.Preference("theme", "light"); got != "dark" {
		t.Errorf("expected theme dark, got %v", got)
	}
	if got := u.Preference("lang", "fr"); got != "fr" {
		t.Errorf("expected removed key to fall back to default, got %v", got)
	}
}

func TestAccessToken_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&AccessToken{}).Expired(now) {
		t.Error("token without expiry must not expire")
	}
	if !(&AccessToken{ExpiresAt: &past}).Expired(now) {
		t.Error("token with past expiry must be expired")
	}
	if (&AccessToken{ExpiresAt: &future}).Expired(now) {
		t.Error("token with future expiry must be valid")
	}
}
