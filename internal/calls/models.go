// Package calls turns call-state transitions into post-call upload requests.
package calls

import (
	"errors"
	"strings"
	"time"
)

// State mirrors the handset's telephony states.
type State string

const (
	StateRinging State = "ringing"
	StateOffhook State = "offhook"
	StateIdle    State = "idle"
)

var (
	ErrUnknownState = errors.New("calls: unknown call state")
	ErrClosed       = errors.New("calls: monitor closed")
)

func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StateRinging, StateOffhook, StateIdle:
		return st, nil
	}
	return "", ErrUnknownState
}

// StateChange is one telephony notification. PhoneNumber is best-effort and
// often missing (outgoing calls, withheld numbers).
type StateChange struct {
	State       State
	PhoneNumber string
}

// CallEvent describes a finished call.
type CallEvent struct {
	PhoneNumber string
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
