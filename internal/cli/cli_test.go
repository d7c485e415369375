package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recording-relay/internal/auth"
	"recording-relay/internal/config"
	"recording-relay/internal/failurelog"
	"recording-relay/internal/media"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	root := NewRootCommand()
	for _, path := range [][]string{{"token", "issue"}, {"contacts", "import"}, {"failures", "list"}} {
		sub, _, err := root.Find(path)
		if err != nil {
			t.Fatalf("find %v: %v", path, err)
		}
		if sub.Name() != path[1] {
			t.Fatalf("expected %q, got %q", path[1], sub.Name())
		}
	}
}

func TestInvalidFormat(t *testing.T) {
	if _, err := execute(t, "--format", "xml", "failures", "list"); err == nil {
		t.Fatalf("expected invalid format error")
	}
}

func TestTokenIssue_VerifiesWithSameSecret(t *testing.T) {
	out, err := execute(t, "--format", "json", "token", "issue",
		"--secret", "s3cret", "--user-id", "dev-1", "--email", "owner@example.com", "--role", "device")
	if err != nil {
		t.Fatalf("issue: %v (%s)", err, out)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "s3cret", AccessTokenTTL: time.Hour, RefreshTokenTTL: 2 * time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	claims, err := m.Verify(body.AccessToken, auth.TokenTypeAccess, time.Now())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Email != "owner@example.com" || claims.Role != "device" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenIssue_RejectsUnknownRole(t *testing.T) {
	if _, err := execute(t, "token", "issue", "--secret", "s", "--user-id", "u", "--role", "root"); err == nil {
		t.Fatalf("expected unknown role error")
	}
}

func TestTokenIssue_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := execute(t, "token", "issue", "--secret", "", "--user-id", "u"); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestContactsImport_WritesIndex(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "media.db")
	file := filepath.Join(dir, "contacts.yaml")
	yml := "contacts:\n  - name: Jane Doe\n    phone: \"+1 (555) 010-2030\"\n  - name: Bob\n    phone: 555.010.9999\n"
	if err := os.WriteFile(file, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, "contacts", "import", "--index", index, file)
	if err != nil {
		t.Fatalf("import: %v (%s)", err, out)
	}
	if !strings.Contains(out, "imported 2 contact(s)") {
		t.Fatalf("unexpected output %q", out)
	}

	db, err := media.OpenDB(index)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	r := &media.ContactResolver{DB: db}
	name, ok := r.Lookup(context.Background(), "+15550102030")
	if !ok || name != "Jane Doe" {
		t.Fatalf("expected Jane Doe, got %q ok=%v", name, ok)
	}
}

func TestContactsImport_MissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "contacts", "import", "--index", filepath.Join(dir, "m.db"), filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestListFailures_SortedText(t *testing.T) {
	ctx := context.Background()
	store := failurelog.NewMemoryStore()
	_ = store.Set(ctx, "/rec/b.m4a", "/rec/b.m4a")
	_ = store.Set(ctx, "/rec/a.m4a", "/rec/a.m4a")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := listFailures(ctx, &RootOptions{Format: "text"}, store, cmd); err != nil {
		t.Fatalf("list: %v", err)
	}
	if out.String() != "/rec/a.m4a\n/rec/b.m4a\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestListFailures_EmptyJSON(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := listFailures(context.Background(), &RootOptions{Format: "json"}, failurelog.NewMemoryStore(), cmd); err != nil {
		t.Fatalf("list: %v", err)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(out.Bytes(), &body); err != nil || body.Count != 0 {
		t.Fatalf("unexpected body %q err=%v", out.String(), err)
	}
}
