package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/storage"
)

const probeTimeout = 3 * time.Second

// Health probes the database, the bucket and the cache. It always answers;
// failures are reported in the body.
func Health(ctx context.Context) dto.HealthResponse {
	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		DBDetail:  "Connection successful",
	}

	dbCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := repo.PingDB(dbCtx); err != nil {
		resp.DBDetail = err.Error()
	} else {
		resp.Database = true
	}

	bucket := config.Policy().BucketName
	var storageErr string
	if storage.Default == nil {
		storageErr = "storage not initialized"
	} else {
		stCtx, stCancel := context.WithTimeout(ctx, probeTimeout)
		defer stCancel()
		exists, err := storage.Default.BucketExists(stCtx, bucket)
		switch {
		case err != nil:
			storageErr = err.Error()
		case !exists:
			storageErr = fmt.Sprintf("Bucket %q not found", bucket)
		default:
			resp.Storage = true
		}
	}
	if storageErr != "" {
		resp.StorageError = &storageErr
	}

	cacheCtx, cacheCancel := context.WithTimeout(ctx, probeTimeout)
	defer cacheCancel()
	switch err := repo.PingRedis(cacheCtx); {
	case errors.Is(err, repo.ErrRedisDisabled):
		resp.Cache = "disabled"
	case err != nil:
		resp.Cache = err.Error()
	default:
		resp.Cache = "ok"
	}
	return resp
}
