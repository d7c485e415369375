package documents

import (
	"context"
	"sync"
)

type docKey struct {
	c     Collection
	phone string
}

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	parents map[docKey]Parent
	records map[docKey][]Record

	// Fail, if set, is returned by Append for the given collection.
	Fail map[Collection]error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{parents: map[docKey]Parent{}, records: map[docKey][]Record{}}
}

func (m *MemoryRepo) Append(ctx context.Context, p Parent, r Record) error {
	if !p.Collection.Valid() {
		return ErrUnknownCollection
	}
	if p.PhoneNumber == "" || r.URL == "" || r.ID == "" {
		return ErrInvalidArgument
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail[p.Collection]; err != nil {
		return err
	}

	k := docKey{p.Collection, p.PhoneNumber}
	if _, ok := m.parents[k]; !ok {
		m.parents[k] = p
	}
	r.Collection = p.Collection
	r.PhoneNumber = p.PhoneNumber
	m.records[k] = append(m.records[k], r)
	return nil
}

func (m *MemoryRepo) Parent(ctx context.Context, c Collection, phoneNumber string) (Parent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parents[docKey{c, phoneNumber}]
	if !ok {
		return Parent{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryRepo) Records(ctx context.Context, c Collection, phoneNumber string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.records[docKey{c, phoneNumber}]
	out := make([]Record, len(src))
	copy(out, src)
	return out, nil
}

// Count returns the number of records across all collections.
func (m *MemoryRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rs := range m.records {
		n += len(rs)
	}
	return n
}
