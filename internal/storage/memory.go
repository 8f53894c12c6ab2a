package storage

import (
	"context"
	"sync"
)

// memoryKV is an ephemeral backend. Nothing survives a restart; useful for
// tests and throwaway runs.
type memoryKV struct {
	mu sync.Mutex
	kv map[string]string
}

// NewMemory returns an empty in-memory KV.
func NewMemory() KV {
	return &memoryKV{kv: map[string]string{}}
}

func (s *memoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.kv[key]
	return v, ok, nil
}

func (s *memoryKV) Put(ctx context.Context, key, value string) error {
	_ = ctx
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

func (s *memoryKV) Close() error { return nil }
