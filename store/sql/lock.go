package sql

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flabs/taskmanager/lock"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const lockRetryInterval = 50 * time.Millisecond

// CreateLock creates a lease on a row of the locks table.
// Lock gives up after ttl, a held lease expires after ttl.
func (s *Store) CreateLock(key string, ttl time.Duration) (lock.DistributedLock, error) {
	if key == "" {
		return nil, errors.WithStack(types.ErrKeyIsEmpty)
	}
	return &Lease{store: s, key: key, ttl: ttl}, nil
}

// Lease excludes holders sharing the database, expired leases are taken over
type Lease struct {
	store *Store
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	owner string
	stop  context.CancelCauseFunc
}

// Lock retries until ttl is over.
// The returned context is canceled with ErrLockSessionDone once the lease expires.
func (l *Lease) Lock(ctx context.Context) (context.Context, error) {
	timer := time.NewTimer(l.ttl)
	defer timer.Stop()
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		lockCtx, err := l.TryLock(ctx)
		if !errors.Is(err, types.ErrLockTimeout) {
			return lockCtx, err
		}
		select {
		case <-ticker.C:
		case <-timer.C:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryLock fails at once if the lease is held by someone else
func (l *Lease) TryLock(ctx context.Context) (context.Context, error) {
	owner := uuid.NewString()
	now := time.Now()
	res, err := l.store.db.ExecContext(ctx, l.store.rebind(fmt.Sprintf(
		"INSERT INTO %s (name, owner, expires) VALUES (?, ?, ?) ON CONFLICT (name) DO UPDATE SET owner = excluded.owner, expires = excluded.expires WHERE %s.expires < ?",
		l.store.tables.locks, l.store.tables.locks,
	)), l.key, owner, now.Add(l.ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if n == 0 {
		return nil, types.NewDetailedErr(types.ErrLockTimeout, l.key)
	}

	lockCtx, stop := context.WithCancelCause(ctx)
	expire := time.AfterFunc(l.ttl, func() { stop(types.ErrLockSessionDone) })
	l.mu.Lock()
	l.owner = owner
	l.stop = func(cause error) {
		expire.Stop()
		stop(cause)
	}
	l.mu.Unlock()
	return lockCtx, nil
}

// Unlock gives ErrLockNotHeld when not locked or when the lease was taken over
func (l *Lease) Unlock(ctx context.Context) error {
	l.mu.Lock()
	owner, stop := l.owner, l.stop
	l.owner, l.stop = "", nil
	l.mu.Unlock()
	if owner == "" {
		return errors.WithStack(types.ErrLockNotHeld)
	}
	defer stop(nil)

	res, err := l.store.db.ExecContext(ctx, l.store.rebind(fmt.Sprintf(
		"DELETE FROM %s WHERE name = ? AND owner = ?", l.store.tables.locks,
	)), l.key, owner)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return types.NewDetailedErr(types.ErrLockNotHeld, l.key)
	}
	return nil
}
