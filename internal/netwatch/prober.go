package netwatch

import (
	"context"
	"log/slog"
	"time"

	"recording-relay/pkg/logger"
)

const DefaultProbeInterval = 15 * time.Second

// CheckFunc reports whether the remote side is reachable.
type CheckFunc func(ctx context.Context) error

// Prober polls a reachability check and feeds the result to a Monitor.
type Prober struct {
	Monitor  *Monitor
	Check    CheckFunc
	Interval time.Duration
	// Timeout bounds each check; defaults to half the interval.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run probes immediately and then every Interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = interval / 2
	}
	log := logger.Component(p.Logger, "prober")

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		p.probe(ctx, log, timeout)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (p *Prober) probe(ctx context.Context, log *slog.Logger, timeout time.Duration) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	err := p.Check(cctx)
	cancel()
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Debug("reachability check failed", "err", err)
	}
	if _, oerr := p.Monitor.Observe(ctx, err == nil); oerr != nil {
		log.Error("retry after reconnect failed", "err", oerr)
	}
}
