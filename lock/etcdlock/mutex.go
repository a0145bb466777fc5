package etcdlock

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

// Mutex is an etcd lock held by its own lease session
type Mutex struct {
	key     string
	ttl     time.Duration
	session *concurrency.Session
	mutex   *concurrency.Mutex

	mu   sync.Mutex
	held bool
	stop context.CancelCauseFunc
}

// New creates a lock on key, the session lease lives ttl
func New(cli *clientv3.Client, key string, ttl time.Duration) (*Mutex, error) {
	if key == "" {
		return nil, errors.WithStack(types.ErrKeyIsEmpty)
	}
	key = path.Join("/", key)

	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	session, err := concurrency.NewSession(cli, concurrency.WithTTL(seconds))
	if err != nil {
		return nil, errors.Wrapf(err, "lock session for %s", key)
	}
	return &Mutex{
		key:     key,
		ttl:     ttl,
		session: session,
		mutex:   concurrency.NewMutex(session, key),
	}, nil
}

// Lock waits at most ttl for the lock.
// The returned context is canceled with ErrLockSessionDone if the lease is lost.
func (m *Mutex) Lock(ctx context.Context) (context.Context, error) {
	return m.acquire(ctx, m.mutex.Lock)
}

// TryLock fails at once if someone else holds the lock
func (m *Mutex) TryLock(ctx context.Context) (context.Context, error) {
	return m.acquire(ctx, m.mutex.TryLock)
}

func (m *Mutex) acquire(ctx context.Context, lock func(context.Context) error) (context.Context, error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.ttl)
	defer cancel()

	switch err := lock(waitCtx); {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, concurrency.ErrLocked):
		return nil, types.NewDetailedErr(types.ErrLockTimeout, m.key)
	default:
		return nil, errors.WithStack(err)
	}

	lockCtx, stop := context.WithCancelCause(ctx)
	m.mu.Lock()
	m.held = true
	m.stop = stop
	m.mu.Unlock()

	go func() {
		select {
		case <-m.session.Done():
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.held {
				stop(types.ErrLockSessionDone)
			}
		case <-lockCtx.Done():
		}
	}()
	return lockCtx, nil
}

// Unlock releases the lock and closes the session
func (m *Mutex) Unlock(ctx context.Context) error {
	defer m.session.Close()

	m.mu.Lock()
	held, stop := m.held, m.stop
	m.held = false
	m.mu.Unlock()
	if !held {
		return errors.WithStack(types.ErrLockNotHeld)
	}
	defer stop(nil)

	unlockCtx, cancel := context.WithTimeout(ctx, m.ttl)
	defer cancel()
	_, err := m.session.Client().Txn(unlockCtx).
		If(m.mutex.IsOwner()).
		Then(clientv3.OpDelete(m.mutex.Key())).
		Commit()
	return errors.WithStack(err)
}
