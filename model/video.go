package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Video struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	Title   string `gorm:"column:title;type:varchar(255);not null" json:"title"`
	URL     string `gorm:"column:url;type:varchar(1024);not null" json:"url"`
	Subject string `gorm:"column:subject;type:varchar(100);not null;index" json:"subject"`

	Semester int `gorm:"column:semester;not null;index" json:"semester"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the database table name.
func (Video) TableName() string {
	return "videos"
}

// BeforeCreate assigns a UUID when the caller did not.
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
