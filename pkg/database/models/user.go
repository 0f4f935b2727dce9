package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a surveyor account that owns projects.
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	DisplayName string    `gorm:"size:255" json:"display_name,omitempty"`
	Email       string    `gorm:"size:255" json:"email,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns an ID to new users.
func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// GetDisplayName returns the display name, or the username when unset.
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
