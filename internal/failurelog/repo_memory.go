package failurelog

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and local runs.
// It does not survive restarts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{entries: map[string]string{}} }

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return v, ok, nil
}

func (s *MemoryStore) All(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

// MemoryDedupSet lives as long as the process; a restart forgets every handle.
type MemoryDedupSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedupSet() *MemoryDedupSet { return &MemoryDedupSet{seen: map[string]struct{}{}} }

func (s *MemoryDedupSet) Add(ctx context.Context, handle string) (bool, error) {
	if handle == "" {
		return false, ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[handle]; ok {
		return false, nil
	}
	s.seen[handle] = struct{}{}
	return true, nil
}

func (s *MemoryDedupSet) Forget(ctx context.Context, handle string) error {
	if handle == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, handle)
	return nil
}
