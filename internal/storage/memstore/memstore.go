// Package memstore is the in-memory Object Store backend used for tests and
// the IN_MEMORY storage type: a mutex-guarded map from key to bytes.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/kesler-oduya/imagefp/internal/apperr"
)

type entry struct {
	data        []byte
	contentType string
}

type Store struct {
	mu      sync.RWMutex
	objects map[string]entry
}

func New() *Store {
	return &Store{objects: make(map[string]entry)}
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = entry{data: cp, contentType: contentType}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objects[key]
	if !ok {
		return nil, "", apperr.New(apperr.KindNotFound, "artifact not found")
	}
	return e.data, e.contentType, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *Store) PublicURL(key string) string {
	return fmt.Sprintf("mem://%s", key)
}
