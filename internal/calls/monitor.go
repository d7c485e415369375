package calls

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"recording-relay/internal/failurelog"
	"recording-relay/internal/media"
	"recording-relay/internal/uploads"
	"recording-relay/pkg/logger"
)

const DefaultPostCallDelay = 2 * time.Second

type ContactResolver interface {
	Lookup(ctx context.Context, phoneNumber string) (string, bool)
}

type FileResolver interface {
	Resolve(ctx context.Context, duration time.Duration) (media.CandidateFile, bool, error)
}

type Dispatcher interface {
	Submit(req uploads.Request) error
}

// Stopper is the part of *time.Timer the monitor uses.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via a wrapper.
type AfterFunc func(d time.Duration, f func()) Stopper

type Deps struct {
	Contacts   ContactResolver
	Files      FileResolver
	Dedup      failurelog.DedupSet
	Dispatcher Dispatcher
	// OnCallEnded runs synchronously on idle for every call with a positive duration.
	OnCallEnded func(CallEvent)

	PostCallDelay time.Duration
	Logger        *slog.Logger
	Clock         func() time.Time
	AfterFunc     AfterFunc
}

// Monitor tracks one phone line. Its state is guarded by mu; post-call work
// runs on scheduled callbacks, never inline with Handle.
type Monitor struct {
	base  context.Context
	deps  Deps
	log   *slog.Logger
	delay time.Duration

	mu      sync.Mutex
	phone   string
	start   time.Time
	closed  bool
	nextID  uint64
	pending map[uint64]Stopper
}

// NewMonitor builds a monitor. ctx carries values (logger) into post-call
// callbacks; its cancellation is ignored, Close stops the monitor.
func NewMonitor(ctx context.Context, d Deps) *Monitor {
	m := &Monitor{
		base:    context.WithoutCancel(ctx),
		deps:    d,
		log:     logger.Component(d.Logger, "calls"),
		delay:   d.PostCallDelay,
		pending: map[uint64]Stopper{},
	}
	if m.delay <= 0 {
		m.delay = DefaultPostCallDelay
	}
	if m.deps.Clock == nil {
		m.deps.Clock = time.Now
	}
	if m.deps.AfterFunc == nil {
		m.deps.AfterFunc = func(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }
	}
	return m
}

// Handle applies one state change.
func (m *Monitor) Handle(ctx context.Context, ch StateChange) error {
	switch ch.State {
	case StateRinging, StateOffhook, StateIdle:
	default:
		return ErrUnknownState
	}

	now := m.deps.Clock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	switch ch.State {
	case StateRinging:
		m.phone = ch.PhoneNumber
		m.mu.Unlock()
		m.log.Debug("call ringing", "has_number", ch.PhoneNumber != "")
		return nil

	case StateOffhook:
		if ch.PhoneNumber != "" {
			m.phone = ch.PhoneNumber
		}
		m.start = now
		m.mu.Unlock()
		m.log.Debug("call offhook")
		return nil
	}

	// idle
	start, phone := m.start, m.phone
	m.start, m.phone = time.Time{}, ""
	if start.IsZero() {
		m.mu.Unlock()
		m.log.Debug("idle without offhook, ignored")
		return nil
	}
	ev := CallEvent{PhoneNumber: phone, StartTime: start, EndTime: now, Duration: now.Sub(start)}
	if ev.Duration <= 0 {
		m.mu.Unlock()
		return nil
	}
	m.scheduleLocked(ev)
	m.mu.Unlock()

	if m.deps.OnCallEnded != nil {
		m.deps.OnCallEnded(ev)
	}
	m.log.Info("phone call ended", "phone_number", ev.PhoneNumber, "duration_ms", ev.Duration.Milliseconds())
	return nil
}

func (m *Monitor) scheduleLocked(ev CallEvent) {
	id := m.nextID
	m.nextID++
	m.pending[id] = m.deps.AfterFunc(m.delay, func() {
		m.mu.Lock()
		_, live := m.pending[id]
		delete(m.pending, id)
		m.mu.Unlock()
		if !live {
			return
		}
		m.afterCall(m.base, ev)
	})
}

func (m *Monitor) afterCall(ctx context.Context, ev CallEvent) {
	log := m.log.With("phone_number", ev.PhoneNumber)

	var contact string
	if m.deps.Contacts != nil && ev.PhoneNumber != "" {
		contact, _ = m.deps.Contacts.Lookup(ctx, ev.PhoneNumber)
	}

	file, ok, err := m.deps.Files.Resolve(ctx, ev.Duration)
	if err != nil {
		log.Error("recording lookup failed", "err", err)
		return
	}
	if !ok {
		log.Info("no recording found for call", "duration_ms", ev.Duration.Milliseconds())
		return
	}
	log = log.With("handle", file.Handle)

	added, err := m.deps.Dedup.Add(ctx, file.Handle)
	if err != nil {
		log.Error("dedup check failed, upload not dispatched", "err", err)
		return
	}
	if !added {
		log.Info("file already uploaded")
		return
	}

	err = m.deps.Dispatcher.Submit(uploads.Request{
		Handle:      file.Handle,
		PhoneNumber: ev.PhoneNumber,
		ContactName: contact,
		Attempt:     uploads.AttemptFirst,
	})
	if err != nil {
		log.Error("upload dispatch failed", "err", err)
		// not sent: a later call resolving the same file may upload it
		if ferr := m.deps.Dedup.Forget(ctx, file.Handle); ferr != nil {
			log.Error("dedup release failed", "err", ferr)
		}
		return
	}
	log.Debug("upload dispatched", "contact_name", contact)
}

// Close stops event intake and cancels post-call work not yet started.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, t := range m.pending {
		t.Stop()
		delete(m.pending, id)
	}
}

// Pending reports how many post-call callbacks are scheduled.
func (m *Monitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
