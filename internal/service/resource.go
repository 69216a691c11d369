package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/metrics"
	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/storage"
	"Go_Shelf/internal/task"
	"Go_Shelf/model"
	"Go_Shelf/utils"

	"gorm.io/gorm"
)

const (
	DefaultCategory = "General"
	MinSemester     = 1
	MaxSemester     = 8
)

// now is the clock used for object keys.
var now = time.Now

// UploadInput is a validated-on-use upload request. Body is only read after
// every field has passed validation.
type UploadInput struct {
	Title    string
	Semester string
	Category string
	Subject  string
	FileName string
	Size     int64
	Body     io.Reader
}

func requireDB() error {
	if repo.Db == nil {
		return apperr.Unavailable("Database service unavailable")
	}
	return nil
}

func requireStorage() error {
	if err := requireDB(); err != nil {
		return err
	}
	if storage.Default == nil {
		return apperr.Unavailable("Storage service unavailable")
	}
	return nil
}

// parseSemester validates a required semester in [1, 8].
func parseSemester(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil || n < MinSemester || n > MaxSemester {
		return 0, apperr.BadRequest("Semester must be between 1 and 8")
	}
	return n, nil
}

// parseSemesterFilter validates an optional integer filter.
func parseSemesterFilter(raw string) (int, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, apperr.BadRequest("Invalid semester filter: " + raw)
	}
	return n, true, nil
}

// ObjectKey is semester-{n}/{unix-ms}-{filename}.
func ObjectKey(semester int, fileName string, at time.Time) string {
	return fmt.Sprintf("semester-%d/%d-%s", semester, at.UnixMilli(), fileName)
}

// ListResources returns resources newest first.
func ListResources(ctx context.Context, q dto.ResourceListQuery) ([]model.Resource, error) {
	if err := requireDB(); err != nil {
		return nil, err
	}
	semester, hasSemester, err := parseSemesterFilter(q.Semester)
	if err != nil {
		return nil, err
	}
	filters := map[string]string{
		"category": q.Category,
		"subject":  q.Subject,
		"search":   strings.ToLower(strings.TrimSpace(q.Search)),
	}
	if hasSemester {
		filters["semester"] = strconv.Itoa(semester)
	}
	key := utils.ListCacheKey(ctx, utils.CollectionResource, filters)

	resources := make([]model.Resource, 0)
	if utils.GetListFromCache(ctx, key, &resources) {
		return resources, nil
	}

	query := repo.Db.WithContext(ctx).Model(&model.Resource{})
	if hasSemester {
		query = query.Where("semester = ?", semester)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Subject != "" {
		query = query.Where("subject = ?", q.Subject)
	}
	query = whereContains(query, "title", q.Search)
	if err := query.Order("created_at DESC").Find(&resources).Error; err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	utils.SetListToCache(ctx, key, resources, config.AppConfig.ListCacheTTL)
	return resources, nil
}

// validateUpload returns the object name, the client's name cut down to what
// is safe inside a storage key, with the parsed semester.
func validateUpload(in UploadInput) (string, int, error) {
	if in.Body == nil || in.FileName == "" {
		return "", 0, apperr.BadRequest("No file provided")
	}
	policy := config.Policy()
	name := utils.SanitizeObjectFilename(in.FileName)
	ext := strings.ToLower(path.Ext(name))
	if name == "" || !policy.Allows(ext) {
		return "", 0, apperr.BadRequest(fmt.Sprintf("File type %s is not allowed", ext)).
			WithDetails(map[string]interface{}{"allowed": policy.AllowedExtensions})
	}
	if policy.MaxUploadBytes > 0 && in.Size > policy.MaxUploadBytes {
		return "", 0, apperr.BadRequest(fmt.Sprintf("File exceeds the %d byte limit", policy.MaxUploadBytes))
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Semester) == "" {
		return "", 0, apperr.BadRequest("Title and semester are required")
	}
	semester, err := parseSemester(in.Semester)
	if err != nil {
		return "", 0, err
	}
	return name, semester, nil
}

// UploadResource stores the blob, then its metadata row. When the row cannot
// be written the blob is removed again, or handed to the cleanup queue if that
// removal fails too.
func UploadResource(ctx context.Context, in UploadInput) (*model.Resource, error) {
	if err := requireStorage(); err != nil {
		return nil, err
	}
	objectName, semester, err := validateUpload(in)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	bucket := config.Policy().BucketName
	key := ObjectKey(semester, objectName, now())
	if err := storage.Default.PutObject(ctx, bucket, key, in.Body, in.Size, storage.PutOptions{
		ContentType: GetContentBook(objectName),
	}); err != nil {
		metrics.UploadsTotal.WithLabelValues("upload_failed").Inc()
		logger.L.Error("resource blob upload failed", "key", key, "error", err)
		return nil, apperr.UploadFailed("Failed to upload file to storage", err).WithDetails(err.Error())
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = DeriveSubject(objectName, category)
	}
	resource := &model.Resource{
		Title:    strings.TrimSpace(in.Title),
		FileURL:  key,
		FileName: in.FileName,
		FileSize: in.Size,
		Semester: semester,
		Category: category,
		Subject:  subject,
	}
	if err := repo.Db.WithContext(ctx).Create(resource).Error; err != nil {
		metrics.UploadsTotal.WithLabelValues("persist_failed").Inc()
		logger.L.Error("resource metadata insert failed", "key", key, "error", err)
		status := compensateUpload(ctx, bucket, key)
		details := map[string]interface{}{
			"reason":       err.Error(),
			"compensation": status.Status,
		}
		if status.TaskID != 0 {
			details["task_id"] = status.TaskID
		}
		return nil, apperr.PersistFailed("Failed to save resource metadata", err).WithDetails(details)
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	utils.InvalidateListCache(ctx, utils.CollectionResource)
	return resource, nil
}

func compensateUpload(ctx context.Context, bucket, key string) *dto.CleanupStatus {
	rmErr := storage.Default.RemoveObject(ctx, bucket, key)
	if rmErr == nil {
		return &dto.CleanupStatus{Status: dto.CompensationRolledBack}
	}
	logger.L.Warn("upload rollback failed, scheduling cleanup", "key", key, "error", rmErr)
	return scheduleCleanup(ctx, bucket, key, model.CleanupReasonUploadRollback, nil)
}

func scheduleCleanup(ctx context.Context, bucket, key, reason string, resourceID *string) *dto.CleanupStatus {
	ct, err := task.ScheduleCleanup(ctx, bucket, key, reason, resourceID)
	if err != nil {
		logger.L.Error("orphaned blob not recorded", "key", key, "reason", reason, "error", err)
		return &dto.CleanupStatus{Status: dto.CompensationUnrecorded, Error: err.Error()}
	}
	return &dto.CleanupStatus{Status: dto.CompensationCleanupScheduled, TaskID: ct.ID}
}

func findResource(ctx context.Context, id string) (*model.Resource, error) {
	var resource model.Resource
	err := repo.Db.WithContext(ctx).Where("id = ?", id).First(&resource).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.L.Warn("resource lookup failed", "id", id, "error", err)
		}
		return nil, apperr.NotFound("Resource not found")
	}
	return &resource, nil
}

// ResourceURL issues a short-lived signed URL for a resource's blob; inline
// URLs open in the browser instead of downloading.
func ResourceURL(ctx context.Context, id string, inline bool) (*dto.SignedURLResponse, error) {
	if err := requireStorage(); err != nil {
		return nil, err
	}
	resource, err := findResource(ctx, id)
	if err != nil {
		return nil, err
	}
	policy := config.Policy()
	url, err := presignObject(ctx, policy.BucketName, resource.FileURL, resource.FileName, policy.SignedURLTTL, inline)
	if err != nil {
		return nil, apperr.URLGenerationFailed("Failed to generate download URL", err)
	}
	return &dto.SignedURLResponse{
		URL:       url,
		FileName:  resource.FileName,
		ExpiresAt: time.Now().Add(policy.SignedURLTTL).UTC(),
	}, nil
}

// DeleteResource removes the blob and then the row. A blob that cannot be
// removed does not block the delete; it is queued for cleanup instead.
func DeleteResource(ctx context.Context, id string) (*dto.DeleteResourceResponse, error) {
	if err := requireDB(); err != nil {
		return nil, err
	}
	resource, err := findResource(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.DeleteResourceResponse{Message: "Resource deleted successfully"}
	bucket := config.Policy().BucketName
	rmErr := errStorageMissing
	if storage.Default != nil {
		rmErr = storage.Default.RemoveObject(ctx, bucket, resource.FileURL)
	}
	if rmErr != nil {
		logger.L.Warn("storage delete failed", "id", id, "key", resource.FileURL, "error", rmErr)
		resp.Cleanup = scheduleCleanup(ctx, bucket, resource.FileURL, model.CleanupReasonResourceDelete, &resource.ID)
	}

	if err := repo.Db.WithContext(ctx).Where("id = ?", id).Delete(&model.Resource{}).Error; err != nil {
		return nil, apperr.PersistFailed("Failed to delete resource", err)
	}
	utils.InvalidateListCache(ctx, utils.CollectionResource)
	return resp, nil
}

// AllowedTypes publishes the upload policy to clients.
func AllowedTypes() dto.AllowedTypesResponse {
	policy := config.Policy()
	exts := make([]string, len(policy.AllowedExtensions))
	copy(exts, policy.AllowedExtensions)
	return dto.AllowedTypesResponse{
		Extensions:     exts,
		MaxUploadBytes: policy.MaxUploadBytes,
	}
}
