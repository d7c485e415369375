package utils

import (
	"context"
	"testing"
)

func TestHashTakeScriptCompiles(t *testing.T) {
	if hashTakeScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestTakeHashField_ValidatesArgs(t *testing.T) {
	if _, _, err := TakeHashField(context.Background(), nil, "k", "f"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisConfig_Defaults(t *testing.T) {
	c := RedisConfig{MinIdleConns: -1}.withDefaults()
	if c.MinIdleConns != 0 {
		t.Fatalf("expected negative idle conns clamped to 0")
	}
	if c.PoolSize <= 0 {
		t.Fatalf("expected pool size default")
	}
}
