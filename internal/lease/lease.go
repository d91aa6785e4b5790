// Package lease keeps a background job single-active across replicas.
package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease is held for at most ttl. Acquire reports false when another holder
// owns it; the returned release is a no-op in that case.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// Redis implements Lease with SET NX PX and a compare-and-delete release.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *Redis) Acquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	err := l.client.SetArgs(ctx, l.key, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return func() {}, false, nil
	}
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}

// Local is a process-local Lease for single-replica deployments and tests.
type Local struct {
	mu      sync.Mutex
	held    bool
	expires time.Time
}

func (l *Local) Acquire(_ context.Context, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if l.held && now.Before(l.expires) {
		return func() {}, false, nil
	}
	l.held = true
	l.expires = now.Add(ttl)
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}, true, nil
}
