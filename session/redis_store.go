package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// DefaultRedisGrace is kept past token expiry so a refresh token outlives
// its access token.
const DefaultRedisGrace = 30 * 24 * time.Hour

// RedisStore stores records under prefix + ":" + key.
//
// The key TTL is the time to access-token expiry plus grace, so abandoned
// sessions age out of Redis on their own.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	grace  time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a Store backed by rdb. A zero grace uses
// DefaultRedisGrace.
func NewRedisStore(rdb redis.UniversalClient, prefix string, grace time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "sg"
	}
	if grace <= 0 {
		grace = DefaultRedisGrace
	}
	return &RedisStore{
		redis:  rdb,
		prefix: prefix,
		grace:  grace,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) Load(ctx context.Context, key string) (*Record, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(data)
}

func (s *RedisStore) Save(ctx context.Context, key string, rec *Record) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(key), data, s.ttl(rec, time.Now())).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping measures a Redis round trip.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *RedisStore) ttl(rec *Record, now time.Time) time.Duration {
	exp := rec.Expiry()
	if exp.IsZero() {
		return s.grace
	}
	ttl := exp.Sub(now) + s.grace
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
