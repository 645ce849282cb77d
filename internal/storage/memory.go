package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// Object is a stored file held by MemoryStorage
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// MemoryStorage implements Storage in process memory. It backs local
// development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]Object
	baseURL string
}

// NewMemoryStorage creates an empty store whose URLs start with baseURL
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]Object),
		baseURL: baseURL,
	}
}

func (s *MemoryStorage) Upload(_ context.Context, input *UploadInput) (*UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", input.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[input.Key] = Object{Key: input.Key, ContentType: input.ContentType, Data: data}

	return &UploadResult{Key: input.Key, URL: objectURL(s.baseURL, input.Key)}, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return ErrObjectNotFound
	}

	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) KeyFromURL(rawURL string) (string, error) {
	return keyFromURL(s.baseURL, rawURL)
}

// Get returns a copy of the object stored under key
func (s *MemoryStorage) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return Object{}, false
	}
	obj.Data = bytes.Clone(obj.Data)
	return obj, true
}

// Len reports how many objects are stored
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
