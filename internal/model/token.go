package model

import "time"

// AccessToken records an issued bearer token. Deleting the row revokes it.
type AccessToken struct {
	ID         uint       `gorm:"primaryKey"`
	UserID     uint       `gorm:"index;not null"`
	TokenID    string     `gorm:"size:36;uniqueIndex;not null"`
	Name       string     `gorm:"size:64"`
	ExpiresAt  *time.Time `gorm:"index"`
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token has an expiry at or before now.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}
