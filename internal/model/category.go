package model

import "time"

// Category groups tasks by area (work, health, study, etc.).
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;uniqueIndex:idx_user_category_name" json:"user_id"`
	Name        string    `gorm:"size:255;not null;uniqueIndex:idx_user_category_name" json:"name"`
	Description *string   `gorm:"size:1000" json:"description"`
	Color       *string   `gorm:"size:20" json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tasks       []Task    `gorm:"foreignKey:CategoryID" json:"-"`
}
