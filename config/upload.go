package config

import (
	"strings"
	"sync"
	"time"
)

// UploadPolicy holds blob bucket and upload validation settings.
type UploadPolicy struct {
	BucketName        string          `json:"bucket_name"`
	MaxUploadBytes    int64           `json:"max_upload_bytes"`
	AllowedExtensions []string        `json:"allowed_extensions"` // lower-case, leading dot
	SignedURLTTL      time.Duration   `json:"signed_url_ttl"`
	allowed           map[string]bool // lookup set for AllowedExtensions
}

// DefaultAllowedExtensions is the canonical upload allow-list shared with clients.
var DefaultAllowedExtensions = []string{
	".pdf", ".docx", ".doc", ".pptx", ".ppt", ".xlsx", ".xls", ".txt", ".zip",
	".jpg", ".jpeg", ".png",
}

const DefaultMaxUploadBytes = 50 * 1024 * 1024

var UploadPolicyInstance *UploadPolicy
var uploadPolicyOnce sync.Once

// InitUploadPolicy initializes the upload policy once.
func InitUploadPolicy() {
	uploadPolicyOnce.Do(func() {
		UploadPolicyInstance = NewUploadPolicy(
			getEnv("BUCKET_NAME", "academic-files"),
			getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
			getEnvList("ALLOWED_EXTENSIONS", DefaultAllowedExtensions),
			getEnvDuration("SIGNED_URL_TTL", 60*time.Second),
		)
	})
}

// NewUploadPolicy normalizes extensions to ".ext" lower-case form.
func NewUploadPolicy(bucket string, maxBytes int64, extensions []string, ttl time.Duration) *UploadPolicy {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	policy := &UploadPolicy{
		BucketName:     bucket,
		MaxUploadBytes: maxBytes,
		SignedURLTTL:   ttl,
		allowed:        make(map[string]bool, len(extensions)),
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if policy.allowed[ext] {
			continue
		}
		policy.allowed[ext] = true
		policy.AllowedExtensions = append(policy.AllowedExtensions, ext)
	}
	return policy
}

// Allows reports whether ext (with or without dot, any case) is on the allow-list.
func (p *UploadPolicy) Allows(ext string) bool {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return false
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return p.allowed[ext]
}

// Policy returns the active upload policy, initializing defaults on first use.
func Policy() *UploadPolicy {
	if UploadPolicyInstance == nil {
		InitUploadPolicy()
	}
	return UploadPolicyInstance
}
