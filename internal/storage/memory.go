package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemStorage is an in-process ObjectStorage used in tests and local runs
// without an object store.
type MemStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	UploadErr error
	RemoveErr error
}

func NewMemStorage() *MemStorage {
	return &MemStorage{objects: make(map[string][]byte)}
}

func (s *MemStorage) Upload(_ context.Context, path string, data []byte, _ string) error {
	if s.UploadErr != nil {
		return s.UploadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[path] = buf
	return nil
}

func (s *MemStorage) Remove(_ context.Context, path string) error {
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func (s *MemStorage) PublicURL(path string) string {
	return fmt.Sprintf("mem://%s", path)
}

func (s *MemStorage) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

func (s *MemStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
