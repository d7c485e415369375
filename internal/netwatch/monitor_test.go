package netwatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recording-relay/internal/failurelog"
	"recording-relay/internal/uploads"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	reqs []uploads.Request
}

func (r *recordingDispatcher) Submit(req uploads.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return nil
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

func TestMonitor_ReconnectRetriesEveryEntryOnce(t *testing.T) {
	ctx := context.Background()
	store := failurelog.NewMemoryStore()
	_ = store.Set(ctx, "/rec/a.m4a", "/rec/a.m4a")
	_ = store.Set(ctx, "/rec/b.m4a", "/rec/b.m4a")
	d := &recordingDispatcher{}
	m := NewMonitor(store, d, nil)

	if n, _ := m.Observe(ctx, false); n != 0 {
		t.Fatalf("disconnected must not retry")
	}
	n, err := m.Observe(ctx, true)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if n != 2 || d.count() != 2 {
		t.Fatalf("expected 2 retries, got %d/%d", n, d.count())
	}
	for _, r := range d.reqs {
		if r.PhoneNumber != "" || r.ContactName != "" || r.Attempt != uploads.AttemptRetry {
			t.Fatalf("retry must carry no caller info: %+v", r)
		}
	}
	if all, _ := store.All(ctx); len(all) != 0 {
		t.Fatalf("expected empty log after retries were issued, got %v", all)
	}

	// still connected: no transition, no retry
	_ = store.Set(ctx, "/rec/c.m4a", "/rec/c.m4a")
	if n, _ := m.Observe(ctx, true); n != 0 {
		t.Fatalf("expected no retry without a transition")
	}
}

type flakyStore struct {
	failurelog.Store
	allErrs int
}

func (s *flakyStore) All(ctx context.Context) (map[string]string, error) {
	if s.allErrs > 0 {
		s.allErrs--
		return nil, errors.New("redis: connection refused")
	}
	return s.Store.All(ctx)
}

func TestMonitor_UnreadableLogRetriesOnNextObservation(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: failurelog.NewMemoryStore(), allErrs: 1}
	_ = store.Set(ctx, "/rec/a.m4a", "/rec/a.m4a")
	d := &recordingDispatcher{}
	m := NewMonitor(store, d, nil)

	if _, err := m.Observe(ctx, true); err == nil {
		t.Fatalf("expected read error on first reconnect")
	}
	if m.Connected() {
		t.Fatalf("expected monitor to stay disconnected after a failed replay")
	}

	n, err := m.Observe(ctx, true)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if n != 1 || d.count() != 1 {
		t.Fatalf("expected the pending entry retried, got %d/%d", n, d.count())
	}
	if all, _ := store.All(ctx); len(all) != 0 {
		t.Fatalf("expected empty log, got %v", all)
	}
}

type closedDispatcher struct{}

func (closedDispatcher) Submit(uploads.Request) error { return uploads.ErrDispatcherClosed }

func TestMonitor_UndispatchedRetryStaysLogged(t *testing.T) {
	ctx := context.Background()
	store := failurelog.NewMemoryStore()
	_ = store.Set(ctx, "/rec/a.m4a", "/rec/a.m4a")
	m := NewMonitor(store, closedDispatcher{}, nil)

	n, err := m.Observe(ctx, true)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no retries issued, got %d", n)
	}
	all, _ := store.All(ctx)
	if all["/rec/a.m4a"] != "/rec/a.m4a" {
		t.Fatalf("expected entry kept for the next reconnect, got %v", all)
	}
}

func TestMonitor_ConcurrentReconnectsDoNotDoubleRetry(t *testing.T) {
	ctx := context.Background()
	store := failurelog.NewMemoryStore()
	for _, h := range []string{"a", "b", "c", "d"} {
		_ = store.Set(ctx, h, h)
	}
	d := &recordingDispatcher{}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = NewMonitor(store, d, nil).RetryAll(ctx)
		}()
	}
	wg.Wait()

	if d.count() != 4 {
		t.Fatalf("expected each entry retried once, got %d", d.count())
	}
}

func TestProber_FeedsMonitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := failurelog.NewMemoryStore()
	_ = store.Set(ctx, "x", "x")
	d := &recordingDispatcher{}
	m := NewMonitor(store, d, nil)

	var calls int32
	p := &Prober{
		Monitor:  m,
		Interval: 5 * time.Millisecond,
		Check: func(context.Context) error {
			if atomic.AddInt32(&calls, 1) < 3 {
				return errors.New("unreachable")
			}
			return nil
		},
	}
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for d.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("prober never triggered a retry")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if !m.Connected() {
		t.Fatalf("expected monitor to be connected")
	}
	if d.count() != 1 {
		t.Fatalf("expected one retry, got %d", d.count())
	}
}
