package uploads

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"recording-relay/pkg/logger"
)

var ErrDispatcherClosed = errors.New("uploads: dispatcher closed")

// Uploader is the synchronous upload entry point the dispatcher drives.
type Uploader interface {
	Upload(ctx context.Context, req Request) Result
}

// Dispatcher runs uploads in the background. Submitted uploads are detached
// from the caller's context; Close stops intake and Wait drains in-flight work.
type Dispatcher struct {
	up  Uploader
	log *slog.Logger
	ctx context.Context

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	// OnResult, if set, observes every finished upload.
	OnResult func(Request, Result)
}

func NewDispatcher(ctx context.Context, up Uploader, l *slog.Logger) *Dispatcher {
	return &Dispatcher{up: up, log: logger.Component(l, "dispatcher"), ctx: context.WithoutCancel(ctx)}
}

func (d *Dispatcher) Submit(req Request) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		res := d.up.Upload(d.ctx, req)
		d.log.Debug("upload finished", "handle", req.Handle, "status", string(res.Status))
		if d.OnResult != nil {
			d.OnResult(req, res)
		}
	}()
	return nil
}

// Close stops accepting new uploads.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Wait blocks until in-flight uploads finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
