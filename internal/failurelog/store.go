// Package failurelog persists the handles of recordings whose upload failed,
// and the set of handles already uploaded, so both survive process restarts.
package failurelog

import (
	"context"
	"errors"
)

var ErrInvalidKey = errors.New("failurelog: key is required")

// Store is the durable string→string map of pending uploads.
// Every implementation must make each operation atomic on its own.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Take reads and removes one entry atomically. ok is false if the key was absent.
	Take(ctx context.Context, key string) (value string, ok bool, err error)
	All(ctx context.Context) (map[string]string, error)
}

// DedupSet remembers which handles were already uploaded.
type DedupSet interface {
	// Add marks the handle and reports whether it was newly added.
	// Check-and-add is a single atomic step.
	Add(ctx context.Context, handle string) (added bool, err error)
	// Forget drops the mark, for a handle whose upload was never dispatched.
	Forget(ctx context.Context, handle string) error
}
