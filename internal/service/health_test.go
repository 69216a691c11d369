package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/storage"
	"Go_Shelf/internal/testutil"
)

func TestHealthAllGood(t *testing.T) {
	testutil.Setup(t)
	h := Health(context.Background())
	if h.Status != "ok" || !h.Database || !h.Storage || h.StorageError != nil {
		t.Fatalf("unexpected health %+v", h)
	}
	if h.DBDetail != "Connection successful" || h.Cache != "disabled" {
		t.Fatalf("unexpected details %+v", h)
	}
	if _, err := time.Parse(time.RFC3339Nano, h.Timestamp); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", err)
	}
}

func TestHealthReportsFailures(t *testing.T) {
	env := testutil.Setup(t)
	env.Store.FailBucket = errors.New("access denied")
	repo.Db = nil

	h := Health(context.Background())
	if h.Status != "ok" || h.Database || h.Storage {
		t.Fatalf("unexpected health %+v", h)
	}
	if h.StorageError == nil || *h.StorageError != "access denied" {
		t.Fatalf("unexpected storage error %v", h.StorageError)
	}
	if h.DBDetail == "Connection successful" {
		t.Fatal("db detail should carry the error")
	}
}

func TestHealthMissingBucket(t *testing.T) {
	testutil.Setup(t)
	storage.Default = testutil.NewMemStore()

	h := Health(context.Background())
	if h.Storage || h.StorageError == nil || !strings.Contains(*h.StorageError, "not found") {
		t.Fatalf("unexpected health %+v", h)
	}
}
