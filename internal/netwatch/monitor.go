// Package netwatch replays failed uploads when the network comes back.
package netwatch

import (
	"context"
	"log/slog"
	"sync"

	"recording-relay/internal/failurelog"
	"recording-relay/internal/uploads"
	"recording-relay/pkg/logger"
)

type Dispatcher interface {
	Submit(req uploads.Request) error
}

// Monitor tracks reachability. The initial state is disconnected, so the
// first connected observation triggers a replay of the failure log.
type Monitor struct {
	failures   failurelog.Store
	dispatcher Dispatcher
	log        *slog.Logger

	mu        sync.Mutex
	connected bool
}

func NewMonitor(failures failurelog.Store, d Dispatcher, l *slog.Logger) *Monitor {
	return &Monitor{failures: failures, dispatcher: d, log: logger.Component(l, "netwatch")}
}

// Observe records the current reachability. On a transition to connected it
// retries every logged failure and returns how many retries were issued.
func (m *Monitor) Observe(ctx context.Context, connected bool) (int, error) {
	m.mu.Lock()
	was := m.connected
	m.connected = connected
	m.mu.Unlock()

	if !connected {
		if was {
			m.log.Info("network lost")
		}
		return 0, nil
	}
	if was {
		return 0, nil
	}
	m.log.Info("network restored, retrying failed uploads")
	n, err := m.RetryAll(ctx)
	if err != nil {
		// the log was not read: treat the next connected observation as the transition
		m.mu.Lock()
		m.connected = false
		m.mu.Unlock()
	}
	return n, err
}

func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// RetryAll issues one retry per failure-log entry. Each entry is taken
// (read and removed atomically) before its retry is submitted, so a retry
// that fails is not retried again and concurrent callers never double-issue.
func (m *Monitor) RetryAll(ctx context.Context) (int, error) {
	entries, err := m.failures.All(ctx)
	if err != nil {
		return 0, err
	}

	issued := 0
	for key := range entries {
		handle, ok, err := m.failures.Take(ctx, key)
		if err != nil {
			m.log.Error("failure log take failed", "key", key, "err", err)
			continue
		}
		if !ok {
			// another caller took it
			continue
		}
		if err := m.dispatcher.Submit(uploads.Request{Handle: handle, Attempt: uploads.AttemptRetry}); err != nil {
			m.log.Error("retry dispatch failed", "handle", handle, "err", err)
			// never issued: keep it for the next reconnect
			if serr := m.failures.Set(ctx, key, handle); serr != nil {
				m.log.Error("failure log restore failed", "handle", handle, "err", serr)
			}
			continue
		}
		issued++
	}
	if issued > 0 {
		m.log.Info("retries issued", "count", issued)
	}
	return issued, nil
}
