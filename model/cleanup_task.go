package model

import "time"

const (
	CleanupPending   = "pending"
	CleanupRunning   = "running"
	CleanupRetrying  = "retrying"
	CleanupCompleted = "completed"
	CleanupDead      = "dead"

	CleanupReasonUploadRollback = "upload_rollback"
	CleanupReasonResourceDelete = "resource_delete"
)

// CleanupTask records an orphaned blob that still has to be removed.
type CleanupTask struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	Bucket     string  `gorm:"column:bucket;type:varchar(64);not null" json:"bucket"`
	ObjectName string  `gorm:"column:object_name;type:varchar(512);not null" json:"object_name"`
	Reason     string  `gorm:"column:reason;type:varchar(32);not null" json:"reason"` // upload_rollback / resource_delete
	ResourceID *string `gorm:"column:resource_id;type:varchar(36)" json:"resource_id"`

	Status      string     `gorm:"column:status;type:varchar(32);index;not null" json:"status"`
	ErrorMsg    string     `gorm:"column:error_msg;type:text" json:"error_msg"`
	RetryCount  int        `gorm:"column:retry_count;default:0" json:"retry_count"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at" json:"next_retry_at"`
	FinishedAt  *time.Time `gorm:"column:finished_at" json:"finished_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (CleanupTask) TableName() string {
	return "cleanup_task"
}
