package task

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/metrics"
	"Go_Shelf/internal/mq"
	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/storage"
	"Go_Shelf/model"
)

// CleanupMessage is the payload sent to the worker.
type CleanupMessage struct {
	TaskID  uint64 `json:"task_id"`
	Attempt int    `json:"attempt"`
}

var (
	ErrQueueDisabled = errors.New("cleanup queue disabled")
	ErrNoDatabase    = errors.New("database not initialized")
	ErrNoStorage     = errors.New("object storage not initialized")
)

// publisherFn resolves the queue publisher. Tests swap it with SetPublisher.
var publisherFn = func() (mq.Publisher, error) {
	if !config.AppConfig.RabbitMQEnabled {
		return nil, ErrQueueDisabled
	}
	return mq.GetPublisher()
}

// SetPublisher overrides the publisher and returns a restore func.
func SetPublisher(p mq.Publisher) func() {
	prev := publisherFn
	publisherFn = func() (mq.Publisher, error) {
		if p == nil {
			return nil, ErrQueueDisabled
		}
		return p, nil
	}
	return func() { publisherFn = prev }
}

// Publisher returns the active queue publisher.
func Publisher() (mq.Publisher, error) {
	return publisherFn()
}

// ScheduleCleanup records an orphaned blob and enqueues its removal. The task
// row is the source of truth: when publishing fails it stays pending and the
// sweep picks it up later.
func ScheduleCleanup(ctx context.Context, bucket, objectName, reason string, resourceID *string) (*model.CleanupTask, error) {
	if repo.Db == nil {
		return nil, ErrNoDatabase
	}
	task := &model.CleanupTask{
		Bucket:     bucket,
		ObjectName: objectName,
		Reason:     reason,
		ResourceID: resourceID,
		Status:     model.CleanupPending,
	}
	if err := repo.Db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	metrics.CleanupTasksTotal.WithLabelValues(model.CleanupPending).Inc()
	if err := publish(ctx, CleanupMessage{TaskID: task.ID}); err != nil {
		logger.L.Warn("cleanup task left for sweep", "task_id", task.ID, "error", err)
	}
	return task, nil
}

func publish(ctx context.Context, msg CleanupMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	publisher, err := publisherFn()
	if err != nil {
		return err
	}
	return publisher.PublishTask(ctx, body)
}

var validStatuses = map[string]bool{
	model.CleanupPending:   true,
	model.CleanupRunning:   true,
	model.CleanupRetrying:  true,
	model.CleanupCompleted: true,
	model.CleanupDead:      true,
}

// ListCleanupTasks lists the most recent tasks, optionally by status.
func ListCleanupTasks(ctx context.Context, status string, limit int) ([]model.CleanupTask, error) {
	if repo.Db == nil {
		return nil, apperr.Unavailable("Database service unavailable")
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !validStatuses[status] {
		return nil, apperr.BadRequest("Unknown cleanup status: " + status)
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	query := repo.Db.WithContext(ctx).Model(&model.CleanupTask{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	tasks := make([]model.CleanupTask, 0)
	if err := query.Order("id DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	return tasks, nil
}

// ProcessCleanupTask removes the task's blob. Removing an absent object
// succeeds, so redelivery is harmless.
func ProcessCleanupTask(ctx context.Context, taskID uint64) error {
	if repo.Db == nil {
		return ErrNoDatabase
	}
	var task model.CleanupTask
	if err := repo.Db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return err
	}
	if task.Status == model.CleanupCompleted || task.Status == model.CleanupDead {
		return nil
	}
	res := repo.Db.WithContext(ctx).Model(&model.CleanupTask{}).
		Where("id = ? AND status IN ?", taskID, []string{model.CleanupPending, model.CleanupRetrying}).
		Updates(map[string]interface{}{
			"status":    model.CleanupRunning,
			"error_msg": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	if storage.Default == nil {
		return ErrNoStorage
	}
	if err := storage.Default.RemoveObject(ctx, task.Bucket, task.ObjectName); err != nil {
		return err
	}

	finishedAt := time.Now()
	if err := repo.Db.WithContext(ctx).Model(&model.CleanupTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":      model.CleanupCompleted,
			"finished_at": &finishedAt,
		}).Error; err != nil {
		return err
	}
	metrics.CleanupTasksTotal.WithLabelValues(model.CleanupCompleted).Inc()
	return nil
}

// MarkRetrying records a failed attempt and when the next one is due.
func MarkRetrying(ctx context.Context, taskID uint64, attempt int, procErr error, nextRetryAt time.Time) error {
	if err := repo.Db.WithContext(ctx).Model(&model.CleanupTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":        model.CleanupRetrying,
			"error_msg":     procErr.Error(),
			"retry_count":   attempt,
			"next_retry_at": &nextRetryAt,
		}).Error; err != nil {
		return err
	}
	metrics.CleanupTasksTotal.WithLabelValues(model.CleanupRetrying).Inc()
	return nil
}

// MarkDead gives up on a task and returns its final state.
func MarkDead(ctx context.Context, taskID uint64, procErr error) (*model.CleanupTask, error) {
	finishedAt := time.Now()
	if err := repo.Db.WithContext(ctx).Model(&model.CleanupTask{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":      model.CleanupDead,
			"error_msg":   procErr.Error(),
			"finished_at": &finishedAt,
		}).Error; err != nil {
		return nil, err
	}
	metrics.CleanupTasksTotal.WithLabelValues(model.CleanupDead).Inc()
	var task model.CleanupTask
	if err := repo.Db.WithContext(ctx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// SweepStale requeues tasks whose message was lost: pending tasks older than
// age, and running or retrying tasks that have not moved for that long.
func SweepStale(ctx context.Context, age time.Duration) (int, error) {
	if repo.Db == nil {
		return 0, ErrNoDatabase
	}
	cutoff := time.Now().Add(-age)
	var tasks []model.CleanupTask
	err := repo.Db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]string{model.CleanupPending, model.CleanupRunning, model.CleanupRetrying}, cutoff).
		Where("(next_retry_at IS NULL OR next_retry_at < ?)", cutoff).
		Order("id ASC").
		Limit(500).
		Find(&tasks).Error
	if err != nil {
		return 0, err
	}
	requeued := 0
	for _, t := range tasks {
		if t.Status != model.CleanupPending {
			if err := repo.Db.WithContext(ctx).Model(&model.CleanupTask{}).
				Where("id = ? AND status = ?", t.ID, t.Status).
				Update("status", model.CleanupPending).Error; err != nil {
				return requeued, err
			}
		}
		if err := publish(ctx, CleanupMessage{TaskID: t.ID, Attempt: t.RetryCount}); err != nil {
			return requeued, err
		}
		requeued++
	}
	return requeued, nil
}
