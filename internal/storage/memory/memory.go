// Package memory implements storage.Storage in process memory.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/utafrali/catalogimporter/internal/storage"
)

type object struct {
	contentType string
	data        []byte
	url         string
}

// Storage implements storage.Storage using an in-memory map.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]*object
	baseURL string
}

var _ storage.Storage = (*Storage)(nil)

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string]*object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload stores the object bytes and returns the generated URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	url := fmt.Sprintf("%s/media/%s", s.baseURL, input.Key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[input.Key] = &object{contentType: input.ContentType, data: data, url: url}

	return &storage.UploadResult{Key: input.Key, URL: url}, nil
}

// Delete removes an object.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("delete %s: %w", key, storage.ErrNotFound)
	}
	delete(s.objects, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return "", fmt.Errorf("get url %s: %w", key, storage.ErrNotFound)
	}
	return obj.url, nil
}

// Bytes returns a copy of the stored object.
func (s *Storage) Bytes(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// Len returns the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
