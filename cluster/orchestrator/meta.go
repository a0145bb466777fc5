package orchestrator

import (
	"context"
	"slices"
	"time"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/metrics"
	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// AddTaskSpecs .
func (o *Orchestrator) AddTaskSpecs(ctx context.Context, specs ...*types.TaskSpec) error {
	if err := store.ValidateSpecs(specs); err != nil {
		return err
	}
	return o.repo.SaveSpecs(ctx, specs...)
}

// GetTaskSpec .
func (o *Orchestrator) GetTaskSpec(ctx context.Context, id string) (*types.TaskSpec, error) {
	if id == "" {
		return nil, types.ErrEmptySpecID
	}
	return o.repo.GetTaskSpec(ctx, id)
}

// ListTaskSpecs .
func (o *Orchestrator) ListTaskSpecs(ctx context.Context) ([]*types.TaskSpec, error) {
	return o.repo.GetAllTaskSpecs(ctx)
}

// RemoveTaskSpec .
func (o *Orchestrator) RemoveTaskSpec(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrEmptySpecID
	}
	return o.repo.RemoveSpec(ctx, id)
}

// GetTask .
func (o *Orchestrator) GetTask(ctx context.Context, id string) (*types.TaskInstance, error) {
	if id == "" {
		return nil, types.ErrEmptyTaskID
	}
	return o.repo.FindTaskInstance(ctx, id)
}

// ListHierarchies .
func (o *Orchestrator) ListHierarchies(ctx context.Context) ([]*types.TaskInstance, error) {
	roots, err := o.repo.GetAllHierarchies(ctx)
	if err != nil {
		log.WithFunc("orchestrator.ListHierarchies").Error(ctx, err)
		return nil, err
	}
	metrics.Client.SendHierarchyCount(ctx, len(roots))
	return roots, nil
}

// RemoveHierarchy removes a finished hierarchy, a busy one gives ErrLockTimeout at once
func (o *Orchestrator) RemoveHierarchy(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrEmptyTaskID
	}
	root, err := o.repo.GetHierarchy(ctx, id)
	if err != nil {
		return err
	}
	return o.withSpecsTryLocked(ctx, []string{root.Spec.ID}, func(ctx context.Context) error {
		return o.removeFinished(ctx, id)
	})
}

// PurgeHierarchies removes the COMPLETED and FAILED hierarchies which ended before the retention,
// busy hierarchies are left for the next run
func (o *Orchestrator) PurgeHierarchies(ctx context.Context) (int, error) {
	logger := log.WithFunc("orchestrator.PurgeHierarchies")
	roots, err := o.repo.GetAllHierarchies(ctx)
	if err != nil {
		return 0, err
	}
	before := time.Now().Add(-o.config.Retention)
	purged := 0
	for _, root := range roots {
		if slices.Contains(types.ActiveStatuses, root.Status) || (root.EndTime != nil && root.EndTime.After(before)) {
			continue
		}
		err := o.withSpecsTryLocked(ctx, []string{root.Spec.ID}, func(ctx context.Context) error {
			return o.removeFinished(ctx, root.ID)
		})
		switch {
		case err == nil:
			purged++
		case errors.Is(err, types.ErrLockTimeout), errors.Is(err, types.ErrHierarchyActive):
			logger.WithField("root", root.ID).Debugf(ctx, "skip %+v", err)
		case errors.Is(err, types.ErrHierarchyNotFound):
		default:
			logger.Error(ctx, err, "purge failed")
			return purged, err
		}
	}
	metrics.Client.SendHierarchyCount(ctx, len(roots)-purged)
	logger.Infof(ctx, "%d hierarchies purged", purged)
	return purged, nil
}

// removeFinished reads the root again under its lock
func (o *Orchestrator) removeFinished(ctx context.Context, id string) error {
	root, err := o.repo.GetHierarchy(ctx, id)
	if err != nil {
		return err
	}
	if slices.Contains(types.ActiveStatuses, root.Status) {
		return types.NewDetailedErr(types.ErrHierarchyActive, id)
	}
	return o.repo.RemoveHierarchy(ctx, id)
}
