package telephony

import (
	"errors"
	"net/http"
	"strings"

	"recording-relay/internal/calls"
)

// ErrIgnoredStatus marks Twilio statuses with no handset equivalent (queued, initiated).
var ErrIgnoredStatus = errors.New("telephony: call status has no state mapping")

// TwilioStatusForm captures the status-callback fields we use.
// Twilio sends application/x-www-form-urlencoded.
type TwilioStatusForm struct {
	CallSid    string
	From       string
	To         string
	Direction  string
	CallStatus string
}

func ParseTwilioStatus(r *http.Request) (TwilioStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioStatusForm{}, err
	}
	return TwilioStatusForm{
		CallSid:    r.PostFormValue("CallSid"),
		From:       normalizePhone(r.PostFormValue("From")),
		To:         normalizePhone(r.PostFormValue("To")),
		Direction:  strings.ToLower(r.PostFormValue("Direction")),
		CallStatus: strings.ToLower(r.PostFormValue("CallStatus")),
	}, nil
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sends "anonymous" or "client:..." for withheld or app callers.
	if s == "" || strings.EqualFold(s, "anonymous") || strings.HasPrefix(s, "client:") {
		return ""
	}
	return s
}

// RemoteNumber is the other party: the caller on inbound legs, the callee on outbound ones.
func (f TwilioStatusForm) RemoteNumber() string {
	if strings.HasPrefix(f.Direction, "outbound") {
		return f.To
	}
	return f.From
}

// StateChange maps the Twilio call status onto a handset call state.
func (f TwilioStatusForm) StateChange() (calls.StateChange, error) {
	var st calls.State
	switch f.CallStatus {
	case "ringing":
		st = calls.StateRinging
	case "in-progress", "answered":
		st = calls.StateOffhook
	case "completed", "busy", "failed", "no-answer", "canceled":
		st = calls.StateIdle
	default:
		return calls.StateChange{}, ErrIgnoredStatus
	}
	return calls.StateChange{State: st, PhoneNumber: f.RemoteNumber()}, nil
}
