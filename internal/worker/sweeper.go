package worker

import (
	"context"
	"time"

	"Go_Shelf/internal/logger"
	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/task"
)

const sweepLockKey = "cleanup:sweep:lock"

// RunSweeper periodically requeues cleanup tasks whose messages were lost.
// With several workers running, a Redis lock keeps one sweep per tick.
func RunSweeper(ctx context.Context, interval, age time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweepOnce(ctx, interval, age)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, interval, age)
		}
	}
}

func sweepOnce(ctx context.Context, interval, age time.Duration) int {
	if repo.Redis != nil {
		lock := repo.NewRedisLock(repo.Redis, sweepLockKey, interval)
		if err := lock.Lock(ctx); err != nil {
			logger.L.Debug("cleanup sweep skipped", "reason", err)
			return 0
		}
		defer func() { _ = lock.Unlock(context.Background()) }()
	}
	n, err := task.SweepStale(ctx, age)
	if err != nil {
		logger.L.Warn("cleanup sweep failed", "requeued", n, "error", err)
		return n
	}
	if n > 0 {
		logger.L.Info("cleanup sweep requeued tasks", "count", n)
	}
	return n
}
