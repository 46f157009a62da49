package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockUnavailable is returned when an advisory lock cannot be acquired
// within the wait budget. The caller should have the client retry.
var ErrLockUnavailable = errors.New("operation already in progress, please retry")

// Locker serializes ledger mutations that must not interleave, keyed by
// consultant or withdrawal ID. Release must always be called.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const (
	lockTTL       = 15 * time.Second
	lockRetryWait = 100 * time.Millisecond
	lockAttempts  = 20
)

// releaseScript deletes the lock only while we still hold it, in one
// round trip: a GET-then-DEL pair could delete a successor's lock if the
// TTL expired between the two calls.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// redisLocker is the production locker: SET NX with a TTL so a crashed
// holder cannot wedge the ledger.
type redisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	for i := 0; i < lockAttempts; i++ {
		ok, err := l.client.SetNX(ctx, "ledger-lock:"+key, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func() {
				// If this fails the TTL reclaims the lock anyway
				releaseScript.Run(context.Background(), l.client, []string{"ledger-lock:" + key}, token)
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}

	return nil, ErrLockUnavailable
}

// mutexLocker is the single-process fallback used when Redis is not
// configured, and by tests.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMutexLocker() Locker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	// Poll instead of blocking on Lock so the caller's deadline is honored,
	// mirroring the redis locker's wait budget
	for i := 0; i < lockAttempts; i++ {
		if m.TryLock() {
			return m.Unlock, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}

	return nil, ErrLockUnavailable
}
