package redislock

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"github.com/muroq/redislock"
)

var retry = &redislock.Options{
	RetryStrategy: redislock.LinearBackoff(500 * time.Millisecond),
}

// RedisLock is a SET NX lock with a ttl
type RedisLock struct {
	key  string
	wait time.Duration
	ttl  time.Duration
	cli  *redislock.Client

	mu   sync.Mutex
	held *redislock.Lock
	stop context.CancelCauseFunc
}

// New creates a lock on key.
// Lock gives up after wait, a held lock expires after ttl.
func New(cli *redis.Client, key string, wait, ttl time.Duration) (*RedisLock, error) {
	if key == "" {
		return nil, errors.WithStack(types.ErrKeyIsEmpty)
	}
	return &RedisLock{
		key:  path.Join("/", key),
		wait: wait,
		ttl:  ttl,
		cli:  redislock.New(cli),
	}, nil
}

// Lock retries until wait is over.
// The returned context is canceled with ErrLockSessionDone once the ttl is over.
func (r *RedisLock) Lock(ctx context.Context) (context.Context, error) {
	return r.obtain(ctx, retry)
}

// TryLock doesn't retry
func (r *RedisLock) TryLock(ctx context.Context) (context.Context, error) {
	return r.obtain(ctx, nil)
}

func (r *RedisLock) obtain(ctx context.Context, opts *redislock.Options) (context.Context, error) {
	l, err := r.cli.Obtain(ctx, r.key, r.wait, r.ttl, opts)
	switch {
	case errors.Is(err, redislock.ErrNotObtained), errors.Is(err, context.DeadlineExceeded):
		return nil, types.NewDetailedErr(types.ErrLockTimeout, r.key)
	case err != nil:
		return nil, errors.WithStack(err)
	}

	lockCtx, stop := context.WithCancelCause(ctx)
	expire := time.AfterFunc(r.ttl, func() { stop(types.ErrLockSessionDone) })
	r.mu.Lock()
	r.held = l
	r.stop = func(cause error) {
		expire.Stop()
		stop(cause)
	}
	r.mu.Unlock()
	return lockCtx, nil
}

// Unlock gives ErrLockNotHeld when not locked
func (r *RedisLock) Unlock(ctx context.Context) error {
	r.mu.Lock()
	l, stop := r.held, r.stop
	r.held, r.stop = nil, nil
	r.mu.Unlock()
	if l == nil {
		return errors.WithStack(types.ErrLockNotHeld)
	}
	defer stop(nil)

	releaseCtx, cancel := context.WithTimeout(ctx, r.ttl)
	defer cancel()
	return errors.WithStack(l.Release(releaseCtx))
}
