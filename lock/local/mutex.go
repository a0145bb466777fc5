package local

import (
	"context"
	"sync"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// Locks is a set of in-process locks by key
type Locks struct {
	sync.Mutex
	held map[string]chan struct{}
}

// NewLocks .
func NewLocks() *Locks {
	return &Locks{held: map[string]chan struct{}{}}
}

// New creates a lock on key
func (l *Locks) New(key string, timeout time.Duration) (*Mutex, error) {
	if key == "" {
		return nil, errors.WithStack(types.ErrKeyIsEmpty)
	}
	l.Lock()
	defer l.Unlock()
	ch, ok := l.held[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.held[key] = ch
	}
	return &Mutex{key: key, timeout: timeout, ch: ch}, nil
}

// Mutex is an in-process lock, it only excludes holders sharing the same Locks
type Mutex struct {
	key     string
	timeout time.Duration
	ch      chan struct{}
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// Lock waits at most timeout for the lock
func (m *Mutex) Lock(ctx context.Context) (context.Context, error) {
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	select {
	case m.ch <- struct{}{}:
		return m.locked(ctx), nil
	case <-timer.C:
		return nil, types.NewDetailedErr(types.ErrLockTimeout, m.key)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryLock fails at once if the lock is held
func (m *Mutex) TryLock(ctx context.Context) (context.Context, error) {
	select {
	case m.ch <- struct{}{}:
		return m.locked(ctx), nil
	default:
		return nil, types.NewDetailedErr(types.ErrLockTimeout, m.key)
	}
}

func (m *Mutex) locked(ctx context.Context) context.Context {
	lockCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	return lockCtx
}

// Unlock .
func (m *Mutex) Unlock(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return errors.WithStack(types.ErrLockNotHeld)
	}
	m.cancel()
	m.cancel = nil
	<-m.ch
	return nil
}
