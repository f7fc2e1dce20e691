/*
Package lock serializes week regeneration.

PURPOSE:
  The engine itself is pure, but two regenerations of the same week racing
  against the store would each delete the other's proposals. A Locker
  hands out one lease per key; the loser gets ErrWeekLocked and the caller
  decides whether to retry.

IMPLEMENTATIONS:
  - RedisLocker: SET NX PX with a random token, released by a
    compare-and-delete script so a lease that expired and was re-acquired
    elsewhere is never released by its old holder
  - LocalLocker: In-process map for single-instance deployments and tests

SEE ALSO:
  - service/scheduler.go: Holds a lease around load -> schedule -> replace
*/
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrWeekLocked = errors.New("week is being regenerated")

// Locker hands out expiring leases.
type Locker interface {
	// Acquire takes the lease for key or returns ErrWeekLocked.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is held until Release or until its TTL passes.
type Lease interface {
	Release(ctx context.Context) error
}

// WeekKey is the lock key for the week starting on weekStart (ISO date).
func WeekKey(weekStart string) string { return "visit-engine:week:" + weekStart }

// =============================================================================
// REDIS
// =============================================================================

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// NewRedisLockerFromURL parses a redis:// URL.
func NewRedisLockerFromURL(url string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisLocker(redis.NewClient(opts)), nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWeekLocked
	}
	return &redisLease{client: l.client, key: key, token: token}, nil
}

// Close closes the underlying client.
func (l *RedisLocker) Close() error { return l.client.Close() }

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (r *redisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Err()
}

// =============================================================================
// LOCAL
// =============================================================================

// LocalLocker is a Locker for a single process.
type LocalLocker struct {
	mu     sync.Mutex
	now    func() time.Time
	seq    uint64
	leases map[string]localEntry
}

type localEntry struct {
	token   uint64
	expires time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{now: time.Now, leases: make(map[string]localEntry)}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.leases[key]; ok && now.Before(e.expires) {
		return nil, ErrWeekLocked
	}
	l.seq++
	l.leases[key] = localEntry{token: l.seq, expires: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: l.seq}, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  uint64
}

func (r *localLease) Release(context.Context) error {
	r.locker.mu.Lock()
	defer r.locker.mu.Unlock()
	if e, ok := r.locker.leases[r.key]; ok && e.token == r.token {
		delete(r.locker.leases, r.key)
	}
	return nil
}
