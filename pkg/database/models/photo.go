package models

import (
	"time"

	"gorm.io/gorm"
)

// Photo is an image captured at a site.
type Photo struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	SiteID      string     `gorm:"index;not null;size:36" json:"site_id"`
	FileName    string     `gorm:"not null;size:512" json:"file_name"`
	ContentType string     `gorm:"size:128" json:"content_type,omitempty"`
	SizeBytes   int64      `json:"size_bytes"`
	Caption     string     `json:"caption,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	TakenAt     *time.Time `gorm:"index" json:"taken_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Site *Site `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Photo.
func (Photo) TableName() string {
	return "photos"
}

// BeforeCreate assigns an ID to new photos.
func (p *Photo) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
