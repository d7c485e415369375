// Package telephony adapts inbound platform events (call state, connectivity)
// into the relay's internal types. No upload logic lives here.
package telephony

import (
	"context"

	"recording-relay/internal/calls"
)

// CallSink consumes call-state transitions (calls.Monitor).
type CallSink interface {
	Handle(ctx context.Context, ch calls.StateChange) error
}

// ConnectivitySink consumes reachability observations (netwatch.Monitor).
type ConnectivitySink interface {
	Observe(ctx context.Context, connected bool) (int, error)
}
