package models

import (
	"time"

	"gorm.io/gorm"
)

// Site is a surveyed location inside a project.
type Site struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string    `gorm:"index;not null;size:36" json:"project_id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Site.
func (Site) TableName() string {
	return "sites"
}

// BeforeCreate assigns an ID to new sites.
func (s *Site) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
