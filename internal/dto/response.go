package dto

import (
	"time"

	"Go_Shelf/model"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type SignedURLResponse struct {
	URL       string    `json:"url"`
	FileName  string    `json:"fileName"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DeleteResourceResponse reports a deletion and, when the blob could not be
// removed, the cleanup task that will retry it.
type DeleteResourceResponse struct {
	Message string         `json:"message"`
	Cleanup *CleanupStatus `json:"cleanup,omitempty"`
}

type CleanupStatus struct {
	Status string `json:"status"`
	TaskID uint64 `json:"task_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	CompensationRolledBack       = "rolled_back"
	CompensationCleanupScheduled = "cleanup_scheduled"
	CompensationUnrecorded       = "cleanup_unrecorded"
)

type AllowedTypesResponse struct {
	Extensions     []string `json:"extensions"`
	MaxUploadBytes int64    `json:"max_upload_bytes"`
}

type SubjectResources struct {
	Subject   string            `json:"subject"`
	Resources []CatalogResource `json:"resources"`
}

type CatalogResource struct {
	model.Resource
	Extension string `json:"extension"`
}

type SemesterCatalog struct {
	Semester int                `json:"semester"`
	Total    int                `json:"total"`
	Subjects []SubjectResources `json:"subjects"`
}

type CatalogVideo struct {
	model.Video
	EmbedURL     string `json:"embed_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type SubjectVideos struct {
	Subject string         `json:"subject"`
	Videos  []CatalogVideo `json:"videos"`
}

type SemesterVideos struct {
	Semester int             `json:"semester"`
	Subjects []SubjectVideos `json:"subjects"`
}

type VideoCatalog struct {
	Total     int              `json:"total"`
	Semesters []SemesterVideos `json:"semesters"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionResponse struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type HealthResponse struct {
	Status       string  `json:"status"`
	Timestamp    string  `json:"timestamp"`
	Database     bool    `json:"database"`
	Storage      bool    `json:"storage"`
	StorageError *string `json:"storage_error"`
	DBDetail     string  `json:"db_detail"`
	Cache        string  `json:"cache"`
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
