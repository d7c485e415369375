// Package storage moves recording bytes into remote blob storage.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	ErrInvalidKey = errors.New("storage: object key is required")
	ErrNotFound   = errors.New("storage: object not found")
)

// ProgressFunc is called as bytes are sent. total is -1 when unknown.
type ProgressFunc func(sent, total int64)

type BlobStore interface {
	// Put writes the object, replacing any existing object with the same key.
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, progress ProgressFunc) error
	// URL returns a long-lived download URL for an existing object.
	URL(ctx context.Context, key string) (string, error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// ObjectKey places a file under prefix by its trailing path segment.
// Two files with the same name map to the same key.
func ObjectKey(prefix, handle string) string {
	name := handle
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

type progressReader struct {
	r     io.ReadSeeker
	total int64
	sent  int64
	fn    ProgressFunc
}

func withProgress(r io.ReadSeeker, total int64, fn ProgressFunc) io.ReadSeeker {
	if fn == nil {
		return r
	}
	return &progressReader{r: r, total: total, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}

// Seek lets the SDK rewind the body for signing and retries.
func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil {
		p.sent = pos
	}
	return pos, err
}
