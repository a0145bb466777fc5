package lock

import "context"

// DistributedLock is a lock based on something
type DistributedLock interface {
	// Lock returns a context which is done when the lock is lost
	Lock(ctx context.Context) (context.Context, error)
	TryLock(ctx context.Context) (context.Context, error)
	Unlock(ctx context.Context) error
}
