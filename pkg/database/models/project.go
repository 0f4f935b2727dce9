package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectStatus is the lifecycle state of a survey project.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

// IsValid checks if the status is a known ProjectStatus.
func (s ProjectStatus) IsValid() bool {
	return s == ProjectActive || s == ProjectArchived
}

// Project groups the sites surveyed for one engagement.
type Project struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	Name        string        `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Description string        `json:"description,omitempty"`
	OwnerID     *string       `gorm:"index;size:36" json:"owner_id,omitempty"`
	Status      ProjectStatus `gorm:"default:active;size:32;index" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the table name for Project.
func (Project) TableName() string {
	return "projects"
}

// BeforeCreate assigns an ID to new projects.
func (p *Project) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Status == "" {
		p.Status = ProjectActive
	}
	return nil
}
