package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

var (
	_ BlobStore = (*MemoryStore)(nil)
	_ BlobStore = (*S3Store)(nil)
)

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix, handle, want string
	}{
		{"uploads", "/sdcard/Recordings/call_01.m4a", "uploads/call_01.m4a"},
		{"/uploads/", "call_01.m4a", "uploads/call_01.m4a"},
		{"", "/a/b.m4a", "b.m4a"},
		{"uploads", `C:\rec\x.amr`, "uploads/x.amr"},
	}
	for _, tc := range cases {
		if got := ObjectKey(tc.prefix, tc.handle); got != tc.want {
			t.Fatalf("ObjectKey(%q, %q) = %q, want %q", tc.prefix, tc.handle, got, tc.want)
		}
	}
}

func TestMemoryStore_PutReportsProgressAndOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	var last int64
	err := m.Put(ctx, "uploads/a.m4a", bytes.NewReader([]byte("first")), 5, func(sent, total int64) {
		if total != 5 {
			t.Fatalf("expected total 5, got %d", total)
		}
		last = sent
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if last != 5 {
		t.Fatalf("expected progress to reach 5, got %d", last)
	}

	if err := m.Put(ctx, "uploads/a.m4a", bytes.NewReader([]byte("second")), 6, nil); err != nil {
		t.Fatalf("second put: %v", err)
	}
	b, _ := m.Object("uploads/a.m4a")
	if string(b) != "second" || m.Len() != 1 {
		t.Fatalf("expected overwrite, got %q (%d objects)", b, m.Len())
	}

	u, err := m.URL(ctx, "uploads/a.m4a")
	if err != nil || u == "" {
		t.Fatalf("url: %q %v", u, err)
	}
}

func TestMemoryStore_InjectedFailure(t *testing.T) {
	m := NewMemoryStore()
	boom := errors.New("network down")
	m.SetPutErr(boom)

	err := m.Put(context.Background(), "k", bytes.NewReader(nil), 0, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if _, err := m.URL(context.Background(), "k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProgressReader_SeekResetsCount(t *testing.T) {
	var sent int64
	r := withProgress(bytes.NewReader([]byte("abcdef")), 6, func(s, _ int64) { sent = s })

	buf := make([]byte, 4)
	_, _ = r.Read(buf)
	if sent != 4 {
		t.Fatalf("expected 4, got %d", sent)
	}
	if _, err := r.Seek(0, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	_, _ = r.Read(buf)
	if sent != 4 {
		t.Fatalf("expected count to restart after seek, got %d", sent)
	}
}
