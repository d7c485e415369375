package utils

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	c := PostgresPoolConfig{}.withDefaults()
	if c.MaxOpenConns <= 0 || c.MaxIdleConns <= 0 {
		t.Fatalf("expected positive pool sizes, got %+v", c)
	}
	if c.PingTimeout != 5*time.Second {
		t.Fatalf("expected 5s ping timeout, got %s", c.PingTimeout)
	}
	if c.ConnectAttempts != 5 || c.ConnectBackoff != time.Second {
		t.Fatalf("unexpected connect retry defaults %d/%s", c.ConnectAttempts, c.ConnectBackoff)
	}
}

func TestApplySchema_RejectsNilDB(t *testing.T) {
	if err := ApplySchema(context.Background(), nil, "SELECT 1"); err == nil {
		t.Fatalf("expected error for nil db")
	}
}

func TestOpenPostgres_UnknownDriver(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), "no-such-driver", "dsn", PostgresPoolConfig{}); err == nil {
		t.Fatalf("expected error for unregistered driver")
	}
}

type flakyDriver struct {
	mu       sync.Mutex
	failures int
	opens    int
}

func (d *flakyDriver) Open(string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.opens <= d.failures {
		return nil, errors.New("connection refused")
	}
	return stubConn{}, nil
}

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func TestOpenPostgres_RetriesUntilReady(t *testing.T) {
	d := &flakyDriver{failures: 2}
	sql.Register("flaky-ready", d)

	db, err := OpenPostgres(context.Background(), "flaky-ready", "dsn", PostgresPoolConfig{ConnectBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("expected ready after retries, got %v", err)
	}
	_ = db.Close()
	if d.opens != 3 {
		t.Fatalf("expected 3 connection attempts, got %d", d.opens)
	}
}

func TestOpenPostgres_GivesUpAfterAttempts(t *testing.T) {
	d := &flakyDriver{failures: 100}
	sql.Register("flaky-down", d)

	_, err := OpenPostgres(context.Background(), "flaky-down", "dsn", PostgresPoolConfig{ConnectAttempts: 2, ConnectBackoff: time.Millisecond})
	if err == nil {
		t.Fatalf("expected error when the database never answers")
	}
	if d.opens != 2 {
		t.Fatalf("expected 2 connection attempts, got %d", d.opens)
	}
}
