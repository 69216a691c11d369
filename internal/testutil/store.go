package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"

	"Go_Shelf/internal/storage"
)

// MemStore is an in-memory storage.Store with switchable failures.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	buckets map[string]bool
	signed  int

	FailPut     error
	FailRemove  error
	FailPresign error
	FailBucket  error

	Puts    int
	Removes int
}

var _ storage.Store = (*MemStore)(nil)

func NewMemStore(buckets ...string) *MemStore {
	s := &MemStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		buckets: make(map[string]bool),
	}
	for _, b := range buckets {
		s.buckets[b] = true
	}
	return s
}

func key(bucket, object string) string { return bucket + "/" + object }

func (s *MemStore) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts storage.PutOptions) error {
	s.mu.Lock()
	s.Puts++
	fail := s.FailPut
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: declared %d, read %d", size, len(data))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key(bucket, object)] = data
	s.types[key(bucket, object)] = opts.ContentType
	return nil
}

func (s *MemStore) RemoveObject(ctx context.Context, bucket, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Removes++
	if s.FailRemove != nil {
		return s.FailRemove
	}
	delete(s.objects, key(bucket, object))
	delete(s.types, key(bucket, object))
	return nil
}

func (s *MemStore) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	return s.PresignedGetObjectWithResponse(ctx, bucket, object, expiry, nil)
}

func (s *MemStore) PresignedGetObjectWithResponse(ctx context.Context, bucket, object string, expiry time.Duration, params map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPresign != nil {
		return "", s.FailPresign
	}
	if _, ok := s.objects[key(bucket, object)]; !ok {
		return "", errors.New("object not found")
	}
	s.signed++
	values := url.Values{}
	values.Set("X-Amz-Expires", fmt.Sprintf("%d", int(expiry.Seconds())))
	values.Set("X-Amz-Signature", fmt.Sprintf("sig%d", s.signed))
	for k, v := range params {
		values.Set(k, v)
	}
	u := url.URL{Scheme: "http", Host: "blob.test", Path: "/" + bucket + "/" + object, RawQuery: values.Encode()}
	return u.String(), nil
}

func (s *MemStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailBucket != nil {
		return false, s.FailBucket
	}
	return s.buckets[bucket], nil
}

// Object returns a stored blob and its content type.
func (s *MemStore) Object(bucket, object string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key(bucket, object)]
	return data, s.types[key(bucket, object)], ok
}

// Keys lists stored "bucket/object" keys in order.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Seed stores a blob directly.
func (s *MemStore) Seed(bucket, object string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key(bucket, object)] = data
}
