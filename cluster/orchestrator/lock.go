package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/flabs/taskmanager/cluster"
	"github.com/flabs/taskmanager/lock"
	"github.com/flabs/taskmanager/log"
)

func (o *Orchestrator) doLock(ctx context.Context, name string, try bool) (lock.DistributedLock, context.Context, error) {
	lock, err := o.repo.Store().CreateLock(name, o.config.LockTimeout)
	if err != nil {
		return nil, nil, err
	}
	if try {
		rCtx, err := lock.TryLock(ctx)
		return lock, rCtx, err
	}
	rCtx, err := lock.Lock(ctx)
	return lock, rCtx, err
}

func (o *Orchestrator) doUnlock(ctx context.Context, lock lock.DistributedLock, msg string) error {
	log.WithFunc("orchestrator.doUnlock").Debugf(ctx, "Unlock %s", msg)
	return lock.Unlock(ctx)
}

func (o *Orchestrator) doUnlockAll(ctx context.Context, locks map[string]lock.DistributedLock, order ...string) {
	logger := log.WithFunc("orchestrator.doUnlockAll")
	if len(order) == 0 {
		for key := range locks {
			order = append(order, key)
		}
	}
	for _, key := range order {
		lock, ok := locks[key]
		if !ok {
			continue
		}
		if err := o.doUnlock(ctx, lock, key); err != nil {
			logger.Errorf(ctx, err, "Unlock %s failed", key)
		}
	}
}

// withSpecsLocked locks the hierarchies of the given root specs in id order
func (o *Orchestrator) withSpecsLocked(ctx context.Context, specIDs []string, f func(context.Context) error) error {
	return o.lockSpecs(ctx, specIDs, false, f)
}

// withSpecsTryLocked gives ErrLockTimeout at once when a hierarchy is busy
func (o *Orchestrator) withSpecsTryLocked(ctx context.Context, specIDs []string, f func(context.Context) error) error {
	return o.lockSpecs(ctx, specIDs, true, f)
}

func (o *Orchestrator) lockSpecs(ctx context.Context, specIDs []string, try bool, f func(context.Context) error) error {
	ids := dedup(specIDs)
	sort.Strings(ids)

	locks := map[string]lock.DistributedLock{}
	defer func() {
		// reverse order
		order := make([]string, 0, len(ids))
		for i := len(ids) - 1; i >= 0; i-- {
			order = append(order, fmt.Sprintf(cluster.HierarchyLock, ids[i]))
		}
		o.doUnlockAll(context.TODO(), locks, order...)
	}()

	lockCtx := ctx
	for _, id := range ids {
		key := fmt.Sprintf(cluster.HierarchyLock, id)
		lock, rCtx, err := o.doLock(lockCtx, key, try)
		if err != nil {
			return err
		}
		locks[key] = lock
		lockCtx = rCtx
	}
	return f(lockCtx)
}

func dedup(ss []string) []string {
	seen := map[string]struct{}{}
	r := []string{}
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		r = append(r, s)
	}
	return r
}
