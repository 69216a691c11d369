package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Resource struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	Title string `gorm:"column:title;type:varchar(255);not null" json:"title"`

	FileURL  string `gorm:"column:file_url;type:varchar(512);not null;uniqueIndex" json:"file_url"` // object key in the bucket
	FileName string `gorm:"column:file_name;type:varchar(255);not null" json:"file_name"`
	FileSize int64  `gorm:"column:file_size;not null;default:0" json:"file_size"`

	Semester int    `gorm:"column:semester;not null;index" json:"semester"`
	Category string `gorm:"column:category;type:varchar(100);not null;default:'General';index" json:"category"`
	Subject  string `gorm:"column:subject;type:varchar(100);not null;default:'General';index" json:"subject"`

	UploadedBy *string `gorm:"column:uploaded_by;type:varchar(64)" json:"uploaded_by"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the database table name.
func (Resource) TableName() string {
	return "resources"
}

// BeforeCreate assigns a UUID when the caller did not.
func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
