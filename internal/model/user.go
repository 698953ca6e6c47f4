package model

import "time"

// User is an account that owns categories and tasks.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Email        string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Preferences  map[string]any `gorm:"serializer:json" json:"preferences"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Preference returns a preference value or def when it is not set.
func (u *User) Preference(key string, def any) any {
	if u.Preferences == nil {
		return def
	}
	if v, ok := u.Preferences[key]; ok {
		return v
	}
	return def
}

// MergePreferences applies updates to the preference map. Nil values remove keys.
func (u *User) MergePreferences(updates map[string]any) {
	if u.Preferences == nil {
		u.Preferences = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		if v == nil {
			delete(u.Preferences, k)
			continue
		}
		u.Preferences[k] = v
	}
}
