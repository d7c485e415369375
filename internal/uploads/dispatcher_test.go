package uploads

import (
	"context"
	"sync"
	"testing"
	"time"
)

type stubUploader struct {
	mu    sync.Mutex
	reqs  []Request
	block chan struct{}
}

func (s *stubUploader) Upload(ctx context.Context, req Request) Result {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	return Result{Status: StatusSucceeded}
}

func TestDispatcher_RunsAndDrains(t *testing.T) {
	up := &stubUploader{}
	d := NewDispatcher(context.Background(), up, nil)

	var mu sync.Mutex
	var seen []Status
	d.OnResult = func(_ Request, r Result) {
		mu.Lock()
		seen = append(seen, r.Status)
		mu.Unlock()
	}

	for _, h := range []string{"a", "b", "c"} {
		if err := d.Submit(Request{Handle: h}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	d.Close()
	if err := d.Submit(Request{Handle: "late"}); err != ErrDispatcherClosed {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(up.reqs) != 3 || len(seen) != 3 {
		t.Fatalf("expected 3 uploads, got %d/%d", len(up.reqs), len(seen))
	}
}

func TestDispatcher_WaitHonorsDeadline(t *testing.T) {
	up := &stubUploader{block: make(chan struct{})}
	defer close(up.block)
	d := NewDispatcher(context.Background(), up, nil)
	_ = d.Submit(Request{Handle: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcher_DetachedFromSubmitterContext(t *testing.T) {
	up := &stubUploader{}
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(ctx, up, nil)
	cancel()

	_ = d.Submit(Request{Handle: "x"})
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(up.reqs) != 1 {
		t.Fatalf("expected upload to run after base context cancel")
	}
}
