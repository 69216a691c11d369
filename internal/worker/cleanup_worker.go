package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/mq"
	"Go_Shelf/internal/task"
	"Go_Shelf/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type dlqMessage struct {
	TaskID   uint64    `json:"task_id"`
	Attempt  int       `json:"attempt"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// sendAlert mails the operator about a dead task; swapped in tests.
var sendAlert = utils.SendDeadTaskAlert

// RunCleanupWorker consumes cleanup tasks from RabbitMQ until ctx is done.
func RunCleanupWorker(ctx context.Context) error {
	client, err := mq.Dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}

	prefetch := config.AppConfig.RabbitMQPrefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := client.Channel.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(
		mq.QueueTasks,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	concurrency := config.AppConfig.CleanupWorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	limiter := newLimiter(config.AppConfig.CleanupRate, config.AppConfig.CleanupBurst)

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("cleanup worker: delivery channel closed")
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				if handleMessage(ctx, client, limiter, d.Body) {
					_ = d.Ack(false)
				} else {
					_ = d.Nack(false, true)
				}
			}(delivery)
		}
	}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// handleMessage processes one delivery and reports whether it should be acked.
// A false result requeues the message.
func handleMessage(ctx context.Context, pub mq.Publisher, limiter *rate.Limiter, body []byte) bool {
	var msg task.CleanupMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.L.Warn("cleanup worker: invalid message", "error", err)
		return true
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return false
		}
	}

	err := task.ProcessCleanupTask(ctx, msg.TaskID)
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if err := handleFailure(ctx, pub, msg, err); err != nil {
		logger.L.Error("cleanup worker: failure handling failed", "task_id", msg.TaskID, "error", err)
		return false
	}
	return true
}

func handleFailure(ctx context.Context, pub mq.Publisher, msg task.CleanupMessage, procErr error) error {
	if shouldRetry(procErr) {
		return scheduleRetry(ctx, pub, msg, procErr)
	}
	return markDead(ctx, pub, msg, procErr)
}

func shouldRetry(err error) bool {
	return !errors.Is(err, gorm.ErrRecordNotFound)
}

func scheduleRetry(ctx context.Context, pub mq.Publisher, msg task.CleanupMessage, procErr error) error {
	maxRetry := config.AppConfig.CleanupRetryMax
	if maxRetry < 0 {
		maxRetry = 0
	}
	nextAttempt := msg.Attempt + 1
	if maxRetry == 0 || nextAttempt > maxRetry {
		return markDead(ctx, pub, msg, procErr)
	}

	delay := pickRetryDelay(nextAttempt, config.AppConfig.CleanupRetryDelays)
	if err := task.MarkRetrying(ctx, msg.TaskID, nextAttempt, procErr, time.Now().Add(delay)); err != nil {
		return err
	}
	logger.L.Warn("cleanup task retry scheduled",
		"task_id", msg.TaskID, "attempt", nextAttempt, "delay", delay.String(), "error", procErr)

	msg.Attempt = nextAttempt
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return pub.PublishRetry(ctx, body, delay)
}

func markDead(ctx context.Context, pub mq.Publisher, msg task.CleanupMessage, procErr error) error {
	if errors.Is(procErr, gorm.ErrRecordNotFound) {
		logger.L.Warn("cleanup task vanished", "task_id", msg.TaskID)
		return nil
	}
	dead, err := task.MarkDead(ctx, msg.TaskID, procErr)
	if err != nil {
		return err
	}
	logger.L.Error("cleanup task dead", "task_id", dead.ID, "object", dead.ObjectName, "error", procErr)

	body, err := json.Marshal(dlqMessage{
		TaskID:   msg.TaskID,
		Attempt:  msg.Attempt,
		Error:    procErr.Error(),
		FailedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	if err := pub.PublishDLQ(ctx, body); err != nil {
		logger.L.Warn("cleanup worker: dlq publish failed", "task_id", msg.TaskID, "error", err)
	}

	if to := config.AppConfig.AlertEmail; to != "" {
		alert := utils.DeadTaskAlert{
			TaskID:     dead.ID,
			Bucket:     dead.Bucket,
			ObjectName: dead.ObjectName,
			Reason:     dead.Reason,
			Attempts:   dead.RetryCount + 1,
			LastError:  procErr.Error(),
		}
		if err := sendAlert(to, alert); err != nil {
			logger.L.Warn("cleanup worker: alert mail failed", "task_id", dead.ID, "error", err)
		}
	}
	return nil
}

func pickRetryDelay(attempt int, delays []time.Duration) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	index := attempt - 1
	if index < 0 {
		index = 0
	}
	if index >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[index]
}
