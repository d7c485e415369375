package failurelog

import (
	"context"
	"time"

	"recording-relay/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	defaultHashKey     = "relay:failed_uploads"
	defaultDedupPrefix = "relay:uploaded:"
)

// RedisStore keeps the failure log in a single Redis hash.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, key: defaultHashKey}
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return s.rdb.HSet(ctx, s.key, key, value).Err()
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return s.rdb.HDel(ctx, s.key, key).Err()
}

func (s *RedisStore) Take(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	return utils.TakeHashField(ctx, s.rdb, s.key, key)
}

func (s *RedisStore) All(ctx context.Context) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, s.key).Result()
}

// RedisDedupSet stores one key per uploaded handle with a retention TTL,
// so the set survives restarts without growing forever.
type RedisDedupSet struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDedupSet(rdb *redis.Client, ttl time.Duration) *RedisDedupSet {
	return &RedisDedupSet{rdb: rdb, prefix: defaultDedupPrefix, ttl: ttl}
}

func (s *RedisDedupSet) Add(ctx context.Context, handle string) (bool, error) {
	if handle == "" {
		return false, ErrInvalidKey
	}
	return s.rdb.SetNX(ctx, s.prefix+handle, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
}

func (s *RedisDedupSet) Forget(ctx context.Context, handle string) error {
	if handle == "" {
		return ErrInvalidKey
	}
	return s.rdb.Del(ctx, s.prefix+handle).Err()
}
