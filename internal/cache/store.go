package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss indicates the key is absent or already expired.
var ErrMiss = errors.New("cache: key not found")

// ErrUnavailable indicates the cache could not be reached within the
// operation deadline. Callers decide the fail-closed mapping.
var ErrUnavailable = errors.New("cache: unavailable")

// Store is the shared key-value capability behind sessions and rate
// counters. All keys carry a TTL; Increment must be atomic at the cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

type redisStore struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewRedisStore wraps a go-redis client. opTimeout bounds every cache call;
// zero means 500ms.
func NewRedisStore(client *redis.Client, opTimeout time.Duration) Store {
	if opTimeout <= 0 {
		opTimeout = 500 * time.Millisecond
	}
	return &redisStore{client: client, opTimeout: opTimeout}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		data, err = s.client.Get(ctx, key).Bytes()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, key, value, ttl).Err()
	})
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.do(ctx, func(ctx context.Context) error {
		err := s.client.Del(ctx, key).Err()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
}

// Increment bumps the counter atomically, attaching the TTL only when the
// key was just created so the window boundary stays fixed.
func (s *redisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var count int64
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.client.Incr(ctx, key).Result()
		if err != nil {
			return err
		}
		if count == 1 && ttl > 0 {
			return s.client.Expire(ctx, key, ttl).Err()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *redisStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := s.do(ctx, func(ctx context.Context) error {
		keys = keys[:0]
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// do runs one cache operation under the configured deadline, retrying once
// with a short backoff on timeout before reporting ErrUnavailable.
func (s *redisStore) do(ctx context.Context, op func(context.Context) error) error {
	err := s.attempt(ctx, op)
	if !isTimeout(err) {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	if err = s.attempt(ctx, op); isTimeout(err) {
		return ErrUnavailable
	}
	return err
}

func (s *redisStore) attempt(ctx context.Context, op func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return op(opCtx)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
