// Package uploads moves one recording to blob storage and records the outcome.
package uploads

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusSkipped is returned, never journaled: the identity gate rejected the call.
	StatusSkipped Status = "skipped"
)

// Attempt distinguishes the post-call upload from a connectivity retry.
// Only first attempts are written to the failure log when they fail.
type Attempt string

const (
	AttemptFirst Attempt = "first"
	AttemptRetry Attempt = "retry"
)

var ErrInvalidRequest = errors.New("uploads: file handle is required")

type Request struct {
	Handle string
	// PhoneNumber and ContactName are empty when unknown (always on retry).
	PhoneNumber string
	ContactName string
	Attempt     Attempt
}

type Result struct {
	UploadID  string
	Status    Status
	ObjectKey string
	URL       string
	Err       error
}

// UploadRecord is one journal row. A single upload appends a pending row and
// then a terminal one sharing UploadID.
type UploadRecord struct {
	ID          string    `json:"id"`
	UploadID    string    `json:"upload_id"`
	Handle      string    `json:"handle"`
	ObjectKey   string    `json:"object_key"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	Attempt     Attempt   `json:"attempt"`
	Status      Status    `json:"status"`
	URL         string    `json:"url,omitempty"`
	Error       string    `json:"error,omitempty"`
	Principal   string    `json:"principal"`
	CreatedAt   time.Time `json:"created_at"`
}
