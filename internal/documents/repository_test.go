package documents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	_ Repository = (*MemoryRepo)(nil)
	_ Repository = (*PostgresRepo)(nil)
)

func TestMemoryRepo_ConcurrentFirstWritesKeepEveryRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Append(ctx,
				Parent{Collection: CollectionClients, PhoneNumber: "+15550100", Name: fmt.Sprintf("name-%d", i), CreatedAt: now},
				Record{ID: fmt.Sprintf("r-%d", i), URL: fmt.Sprintf("mem://uploads/%d.m4a", i), Timestamp: now},
			)
			if err != nil {
				t.Errorf("append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	recs, _ := repo.Records(ctx, CollectionClients, "+15550100")
	if len(recs) != n {
		t.Fatalf("expected %d records, got %d", n, len(recs))
	}
	p, err := repo.Parent(ctx, CollectionClients, "+15550100")
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if !strings.HasPrefix(p.Name, "name-") {
		t.Fatalf("unexpected parent name %q", p.Name)
	}
}

func TestMemoryRepo_ParentNameSetOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	_ = repo.Append(ctx, Parent{Collection: CollectionAppointmentSuggestions, PhoneNumber: "1", Name: "Alice", CreatedAt: now}, Record{ID: "a", URL: "u1", Timestamp: now})
	_ = repo.Append(ctx, Parent{Collection: CollectionAppointmentSuggestions, PhoneNumber: "1", Name: "Someone Else", CreatedAt: now}, Record{ID: "b", URL: "u2", Timestamp: now})

	p, _ := repo.Parent(ctx, CollectionAppointmentSuggestions, "1")
	if p.Name != "Alice" {
		t.Fatalf("expected first name to stick, got %q", p.Name)
	}
	if _, err := repo.Parent(ctx, CollectionClients, "1"); err != ErrNotFound {
		t.Fatalf("collections must be independent, got %v", err)
	}
}

func TestMemoryRepo_Validation(t *testing.T) {
	repo := NewMemoryRepo()
	if err := repo.Append(context.Background(), Parent{Collection: "rdv"}, Record{}); err != ErrUnknownCollection {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
	if err := repo.Append(context.Background(), Parent{Collection: CollectionClients}, Record{ID: "x", URL: "u"}); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSchema_CoversEveryCollection(t *testing.T) {
	for _, c := range Collections {
		ts, ok := tables[c]
		if !ok {
			t.Fatalf("no tables for %s", c)
		}
		for _, name := range []string{ts.parent, ts.records} {
			if !strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+name+" ") {
				t.Fatalf("schema missing table %s", name)
			}
		}
	}
}
