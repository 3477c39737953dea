package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("run lock held by another process")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes pipeline runs across processes sharing a Redis instance.
type Locker struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// New creates a Locker backed by Redis. The TTL bounds how long a crashed
// run can block others.
func New(redisURL, password, key string, ttl time.Duration) (*Locker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if password != "" {
		opts.Password = password
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Locker{rdb: rdb, key: key, ttl: ttl}, nil
}

// Close shuts down the Redis connection.
func (l *Locker) Close() error {
	return l.rdb.Close()
}

// Acquire takes the lock or returns ErrLocked. The returned release func
// frees it if it is still ours.
func (l *Locker) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.rdb, []string{l.key}, token) //nolint:errcheck
	}, nil
}

// Ping checks the Redis connection.
func (l *Locker) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// Held reports whether the lock key currently exists.
func (l *Locker) Held(ctx context.Context) bool {
	n, err := l.rdb.Exists(ctx, l.key).Result()
	return err == nil && n > 0
}
