package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"Go_Shelf/model"
)

const (
	StatusQueued    = "queued"
	StatusUploading = "uploading"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

// BulkFile is one local file for BulkUpload. Title defaults to the file name
// without its extension.
type BulkFile struct {
	Path     string
	Title    string
	Semester string
	Category string
	Subject  string
}

type BulkResult struct {
	Path     string
	Status   string
	Resource *model.Resource
	Err      error
}

// BulkProgress receives a snapshot of every file's status after each change.
type BulkProgress func(statuses map[string]string)

// BulkStatus is the per-file status map of one BulkUpload run, keyed by path.
type BulkStatus struct {
	mu       sync.Mutex
	statuses map[string]string
	progress BulkProgress
}

func newBulkStatus(files []BulkFile, progress BulkProgress) *BulkStatus {
	s := &BulkStatus{statuses: make(map[string]string, len(files)), progress: progress}
	for _, f := range files {
		s.statuses[f.Path] = StatusQueued
	}
	return s
}

func (s *BulkStatus) set(path, status string) {
	s.mu.Lock()
	s.statuses[path] = status
	s.mu.Unlock()
	if s.progress != nil {
		s.progress(s.Snapshot())
	}
}

func (s *BulkStatus) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out
}

// BulkUpload uploads files one after another. A failed file does not stop the
// run; a cancelled context does, and the remaining files stay queued.
func (c *Client) BulkUpload(ctx context.Context, files []BulkFile, progress BulkProgress) ([]BulkResult, error) {
	status := newBulkStatus(files, progress)
	if progress != nil {
		progress(status.Snapshot())
	}
	results := make([]BulkResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		status.set(f.Path, StatusUploading)
		res, err := c.uploadFile(ctx, f)
		if err != nil {
			c.log.Warn("bulk upload failed", "path", f.Path, "error", err)
			status.set(f.Path, StatusFailed)
			results = append(results, BulkResult{Path: f.Path, Status: StatusFailed, Err: err})
			continue
		}
		status.set(f.Path, StatusDone)
		results = append(results, BulkResult{Path: f.Path, Status: StatusDone, Resource: res})
	}
	return results, nil
}

func (c *Client) uploadFile(ctx context.Context, f BulkFile) (*model.Resource, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := filepath.Base(f.Path)
	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return c.UploadResource(ctx, Upload{
		Title:    title,
		Semester: f.Semester,
		Category: f.Category,
		Subject:  f.Subject,
		FileName: name,
		Body:     file,
	})
}
