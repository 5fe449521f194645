package storage

import (
	"context"
	"errors"
	"sync"
)

// MemoryStorage keeps values in process memory. Nothing survives a restart
// of the process; it backs tests and local development.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Read(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStorage) Write(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Update(_ context.Context, key string, fn UpdateFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.values[key]
	next, err := fn(current, ok)
	if errors.Is(err, ErrUnchanged) {
		return current, nil
	}
	if err != nil {
		return "", err
	}

	s.values[key] = next
	return next, nil
}

func (s *MemoryStorage) Ping(context.Context) error { return nil }
