package storage

import (
	"context"
	"sync"
)

// MemorySlot keeps values in process memory. Used by tests and by
// `--storage memory` for throwaway sessions.
type MemorySlot struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySlot creates an empty MemorySlot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string]string)}
}

func (s *MemorySlot) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemorySlot) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemorySlot) Ping(context.Context) error { return nil }

func (s *MemorySlot) Close() error { return nil }

func (s *MemorySlot) Name() string { return BackendMemory }
