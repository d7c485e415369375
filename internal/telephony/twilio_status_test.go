package telephony

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"recording-relay/internal/calls"
)

func TestParseTwilioStatus(t *testing.T) {
	body := strings.NewReader("CallSid=CA123&From=%2B15551234567&To=%2B15557654321&Direction=inbound&CallStatus=in-progress")
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/status", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseTwilioStatus(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if form.CallSid != "CA123" {
		t.Fatalf("expected CallSid")
	}
	ch, err := form.StateChange()
	if err != nil {
		t.Fatalf("state change: %v", err)
	}
	if ch.State != calls.StateOffhook || ch.PhoneNumber != "+15551234567" {
		t.Fatalf("unexpected change %+v", ch)
	}
}

func TestTwilioStatusMapping(t *testing.T) {
	cases := map[string]calls.State{
		"ringing":     calls.StateRinging,
		"in-progress": calls.StateOffhook,
		"completed":   calls.StateIdle,
		"busy":        calls.StateIdle,
		"failed":      calls.StateIdle,
		"no-answer":   calls.StateIdle,
		"canceled":    calls.StateIdle,
	}
	for status, want := range cases {
		ch, err := TwilioStatusForm{CallStatus: status}.StateChange()
		if err != nil || ch.State != want {
			t.Fatalf("%s: expected %s, got %s (%v)", status, want, ch.State, err)
		}
	}
	if _, err := (TwilioStatusForm{CallStatus: "queued"}).StateChange(); err != ErrIgnoredStatus {
		t.Fatalf("expected ErrIgnoredStatus, got %v", err)
	}
}

func TestTwilioRemoteNumber(t *testing.T) {
	out := TwilioStatusForm{From: "+1000", To: "+2000", Direction: "outbound-api"}
	if out.RemoteNumber() != "+2000" {
		t.Fatalf("outbound should report the callee")
	}
	in := TwilioStatusForm{From: "+1000", To: "+2000", Direction: "inbound"}
	if in.RemoteNumber() != "+1000" {
		t.Fatalf("inbound should report the caller")
	}
	if normalizePhone("anonymous") != "" {
		t.Fatalf("anonymous caller should have no number")
	}
}

func TestTwilioSignature_RoundTrip(t *testing.T) {
	params := url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}, "From": {"+1000"}}
	u := "https://relay.example.com/webhooks/twilio/status"

	sig := TwilioSignature("token", u, params)
	if !ValidTwilioSignature("token", u, params, sig) {
		t.Fatalf("expected valid signature")
	}
	if ValidTwilioSignature("other", u, params, sig) {
		t.Fatalf("expected signature to depend on the token")
	}
	params.Set("CallStatus", "busy")
	if ValidTwilioSignature("token", u, params, sig) {
		t.Fatalf("expected tampered params to fail")
	}
	if ValidTwilioSignature("token", u, params, "") {
		t.Fatalf("expected empty signature to fail")
	}
}

func TestRenderEmptyTwiML(t *testing.T) {
	s, err := RenderEmptyTwiML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(s, "<Response></Response>") {
		t.Fatalf("unexpected twiml %s", s)
	}
}
