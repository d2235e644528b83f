package memory

import (
	"context"
	"sync"
)

// BlobStore keeps uploaded artifacts in a map and hands back
// memory:// URLs. Useful for tests and the no-config demo mode.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

func (s *BlobStore) Upload(_ context.Context, name, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[name] = stored
	return "memory://" + name, nil
}

// Object returns a stored artifact, for tests.
func (s *BlobStore) Object(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[name]
	return data, ok
}
