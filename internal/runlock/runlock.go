// Package runlock ensures at most one engine run is in flight. Local guards
// a single process; Redis guards every process sharing one store.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by TryAcquire when another run holds the lock.
var ErrHeld = errors.New("run lock held")

// Release frees a held lock.
type Release func(ctx context.Context) error

// --------------------------------------------------------------------------
// Local
// --------------------------------------------------------------------------

// Local is an in-process lock.
type Local struct {
	held atomic.Bool
}

func NewLocal() *Local { return &Local{} }

func (l *Local) TryAcquire(context.Context) (Release, error) {
	if !l.held.CompareAndSwap(false, true) {
		return nil, ErrHeld
	}
	var once atomic.Bool
	return func(context.Context) error {
		if once.CompareAndSwap(false, true) {
			l.held.Store(false)
		}
		return nil
	}, nil
}

// --------------------------------------------------------------------------
// Redis
// --------------------------------------------------------------------------

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock held as a key with a TTL. The TTL bounds how long a
// crashed holder blocks other runs.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis connects to the server at url (redis:// or rediss://) and checks
// it answers.
func NewRedis(ctx context.Context, url, key string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = 10 * time.Second
	opts.ReadTimeout = 5 * time.Second
	opts.WriteTimeout = 5 * time.Second
	opts.MaxRetries = 3

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisWithClient(client, key, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, key string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

func (r *Redis) TryAcquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Err(); err != nil {
			return fmt.Errorf("release run lock: %w", err)
		}
		return nil
	}, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
