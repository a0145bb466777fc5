package repository

import (
	"context"
	"time"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/task"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/utils"

	"github.com/cockroachdb/errors"
)

const (
	specCacheExpire  = time.Minute
	specCacheCleanup = 5 * time.Minute
)

// AnyStatus passed to GetTaskInstances disables the status filter
var AnyStatus = []types.TaskStatus{}

// Repository reads and writes task specs and task instances through a store
type Repository struct {
	store     store.Store
	specCache *utils.Cache[[]types.TaskSpecMatch]
}

// New .
func New(sto store.Store) *Repository {
	return &Repository{
		store:     sto,
		specCache: utils.NewCache[[]types.TaskSpecMatch](specCacheExpire, specCacheCleanup),
	}
}

// Store returns the underlying store
func (r *Repository) Store() store.Store {
	return r.store
}

// FindTaskSpecForDependency returns every root spec having specs which depend on dep
func (r *Repository) FindTaskSpecForDependency(ctx context.Context, dep string) ([]types.TaskSpecMatch, error) {
	if matches, ok := r.specCache.Get(dep); ok {
		return matches, nil
	}
	specs, err := r.store.GetAllTaskSpecs(ctx)
	if err != nil {
		return nil, err
	}
	matches := []types.TaskSpecMatch{}
	for _, spec := range specs {
		matched := task.CollectDependent(spec, []string{dep})
		if len(matched) > 0 {
			matches = append(matches, types.TaskSpecMatch{Root: spec, Matched: matched})
		}
	}
	r.specCache.Set(dep, matches)
	return matches, nil
}

// SaveSpecs .
func (r *Repository) SaveSpecs(ctx context.Context, specs ...*types.TaskSpec) error {
	defer r.specCache.Flush()
	return r.store.AddTaskSpecs(ctx, specs...)
}

// RemoveSpec .
func (r *Repository) RemoveSpec(ctx context.Context, id string) error {
	defer r.specCache.Flush()
	return r.store.RemoveTaskSpec(ctx, id)
}

// GetTaskSpec .
func (r *Repository) GetTaskSpec(ctx context.Context, id string) (*types.TaskSpec, error) {
	return r.store.GetTaskSpec(ctx, id)
}

// GetAllTaskSpecs .
func (r *Repository) GetAllTaskSpecs(ctx context.Context) ([]*types.TaskSpec, error) {
	return r.store.GetAllTaskSpecs(ctx)
}

// GetAllHierarchies .
func (r *Repository) GetAllHierarchies(ctx context.Context) ([]*types.TaskInstance, error) {
	return r.store.GetAllHierarchies(ctx)
}

// GetHierarchy .
func (r *Repository) GetHierarchy(ctx context.Context, rootID string) (*types.TaskInstance, error) {
	return r.store.GetHierarchy(ctx, rootID)
}

// RemoveHierarchy removes a root and the task index of its sub tasks
func (r *Repository) RemoveHierarchy(ctx context.Context, rootID string) error {
	return r.store.RemoveHierarchy(ctx, rootID)
}

// GetTaskInstances returns the instances of specs found in the stored hierarchies.
// Without statuses only active instances are returned, AnyStatus returns all.
func (r *Repository) GetTaskInstances(ctx context.Context, specs []*types.TaskSpec, statuses ...types.TaskStatus) ([]*types.TaskInstance, error) {
	if statuses == nil {
		statuses = types.ActiveStatuses
	}
	roots, err := r.store.GetAllHierarchies(ctx)
	if err != nil {
		return nil, err
	}
	result := []*types.TaskInstance{}
	for _, root := range roots {
		for _, spec := range specs {
			inst := task.FindBySpecID(root, spec.ID)
			if inst == nil {
				continue
			}
			if len(statuses) == 0 || hasStatus(statuses, inst.Status) {
				result = append(result, inst)
			}
		}
	}
	return result, nil
}

// MatchTaskInstanceHierarchies binds each spec match to the active hierarchy
// whose task arguments match attrs, the root is nil when none does
func (r *Repository) MatchTaskInstanceHierarchies(ctx context.Context, matches []types.TaskSpecMatch, attrs map[string]string) ([]types.HierarchyMatch, error) {
	roots := []*types.TaskSpec{}
	for _, m := range matches {
		roots = append(roots, m.Root)
	}
	instances, err := r.GetTaskInstances(ctx, roots)
	if err != nil {
		return nil, err
	}
	found := map[string]*types.TaskInstance{}
	for _, inst := range instances {
		if task.MatchAttributes(inst, task.SelectTaskArguments(inst.Spec, attrs)) {
			found[inst.Spec.ID] = inst
		}
	}
	result := make([]types.HierarchyMatch, 0, len(matches))
	for _, m := range matches {
		result = append(result, types.HierarchyMatch{SpecMatch: m, Root: found[m.Root.ID]})
	}
	return result, nil
}

// FindTaskInstance looks a task up in the hierarchy containing it
func (r *Repository) FindTaskInstance(ctx context.Context, taskID string) (*types.TaskInstance, error) {
	root, err := r.store.FindHierarchyByTask(ctx, taskID)
	if errors.Is(err, types.ErrHierarchyNotFound) {
		return nil, types.NewDetailedErr(types.ErrTaskNotFound, taskID)
	}
	if err != nil {
		return nil, err
	}
	inst := task.FindByTaskID(root, taskID)
	if inst == nil {
		return nil, types.NewDetailedErr(types.ErrTaskNotFound, taskID)
	}
	return inst, nil
}

// FindPendingHierarchy returns the pending hierarchy containing the task
func (r *Repository) FindPendingHierarchy(ctx context.Context, taskID string) (*types.TaskInstance, error) {
	root, err := r.store.FindHierarchyByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if root.Status != types.TaskPending {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, taskID)
	}
	return root, nil
}

// SaveInstances saves each instance as a root when its id is a root id,
// merged into the hierarchy containing it otherwise, or as a new root
func (r *Repository) SaveInstances(ctx context.Context, instances ...*types.TaskInstance) error {
	logger := log.WithFunc("repository.SaveInstances")
	updated := map[string]*types.TaskInstance{}
	order := []string{}
	update := func(root *types.TaskInstance) {
		if _, ok := updated[root.ID]; !ok {
			order = append(order, root.ID)
		}
		updated[root.ID] = root
	}

	for _, inst := range instances {
		if inst == nil {
			continue
		}
		root, err := r.containing(ctx, updated, inst.ID)
		if err != nil {
			return err
		}
		switch {
		case root == nil:
			logger.Debugf(ctx, "new hierarchy %s", inst.ID)
			update(inst)
		case root.ID == inst.ID:
			update(inst)
		default:
			update(task.UpdateSub(root, inst))
		}
	}
	if len(order) == 0 {
		return nil
	}

	roots := make([]*types.TaskInstance, 0, len(order))
	for _, id := range order {
		roots = append(roots, updated[id])
	}
	return r.store.SaveHierarchies(ctx, roots...)
}

// containing looks in the roots updated so far then in the store
func (r *Repository) containing(ctx context.Context, updated map[string]*types.TaskInstance, taskID string) (*types.TaskInstance, error) {
	if root, ok := updated[taskID]; ok {
		return root, nil
	}
	for _, root := range updated {
		if task.ContainsTask(root, taskID) {
			return root, nil
		}
	}
	root, err := r.store.FindHierarchyByTask(ctx, taskID)
	if errors.Is(err, types.ErrHierarchyNotFound) {
		return nil, nil
	}
	return root, err
}

func hasStatus(statuses []types.TaskStatus, status types.TaskStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
