package storage

import (
	"context"
	"io"
	"sync"
)

// MemoryStore keeps objects in process. Failures can be injected per call kind.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	PutErr  error
	URLErr  error
	PingErr error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{objects: map[string][]byte{}} }

func (m *MemoryStore) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, progress ProgressFunc) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	putErr := m.PutErr
	m.mu.Unlock()
	if putErr != nil {
		return putErr
	}

	b, err := io.ReadAll(withProgress(body, size, progress))
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *MemoryStore) URL(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.URLErr != nil {
		return "", m.URLErr
	}
	if _, ok := m.objects[key]; !ok {
		return "", ErrNotFound
	}
	return "mem://" + key, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

// Object returns a stored object's bytes.
func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// SetPutErr changes the injected Put failure while uploads may be running.
func (m *MemoryStore) SetPutErr(err error) {
	m.mu.Lock()
	m.PutErr = err
	m.mu.Unlock()
}
