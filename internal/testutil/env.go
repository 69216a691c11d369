package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/storage"

	"gorm.io/gorm"
)

const Bucket = "academic-files"

var dbSeq int64

// Env swaps the package-level collaborators for in-memory ones for one test.
type Env struct {
	DB    *gorm.DB
	Store *MemStore
}

// Setup installs a fresh SQLite database and MemStore, restoring globals on cleanup.
func Setup(t *testing.T) *Env {
	t.Helper()
	name := fmt.Sprintf("file:shelf_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := repo.OpenSQLite(name)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrateAll(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := NewMemStore(Bucket)

	prevDB, prevStore, prevRedis, prevRev := repo.Db, storage.Default, repo.Redis, repo.Revocations
	prevPolicy, prevCfg := config.UploadPolicyInstance, config.AppConfig
	repo.Db = db
	storage.Default = store
	repo.Redis = nil
	repo.Revocations = nil
	config.UploadPolicyInstance = config.NewUploadPolicy(Bucket, config.DefaultMaxUploadBytes, config.DefaultAllowedExtensions, 60*time.Second)
	config.AppConfig.RabbitMQEnabled = false
	config.AppConfig.CleanupRetryMax = 3
	config.AppConfig.CleanupRetryDelays = []time.Duration{time.Second, 2 * time.Second}
	config.AppConfig.ListCacheTTL = 30 * time.Second
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.AdminUsername = "admin"
	config.AppConfig.AdminSessionTTL = time.Hour
	config.AppConfig.AdminAuthEnabled = false
	config.AppConfig.AdminPassword = ""
	config.AppConfig.AdminPasswordHash = ""
	config.AppConfig.AlertEmail = ""

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		repo.Db, storage.Default, repo.Redis, repo.Revocations = prevDB, prevStore, prevRedis, prevRev
		config.UploadPolicyInstance, config.AppConfig = prevPolicy, prevCfg
	})
	return &Env{DB: db, Store: store}
}

// Policy returns the upload policy installed by Setup.
func (e *Env) Policy() *config.UploadPolicy {
	return config.UploadPolicyInstance
}

// SetPolicy replaces the upload policy for the rest of the test.
func (e *Env) SetPolicy(p *config.UploadPolicy) {
	config.UploadPolicyInstance = p
}
