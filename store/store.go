package store

import (
	"context"
	"time"

	"github.com/flabs/taskmanager/lock"
	"github.com/flabs/taskmanager/types"
)

// Store keeps task specs and task hierarchies.
// Specs are stored by root, a hierarchy is stored as a whole under its root task id
// and every task id of the tree is indexed to the root.
type Store interface {
	// specs
	AddTaskSpecs(ctx context.Context, specs ...*types.TaskSpec) error
	GetTaskSpec(ctx context.Context, id string) (*types.TaskSpec, error)
	GetAllTaskSpecs(ctx context.Context) ([]*types.TaskSpec, error)
	RemoveTaskSpec(ctx context.Context, id string) error

	// hierarchies
	SaveHierarchies(ctx context.Context, roots ...*types.TaskInstance) error
	GetHierarchy(ctx context.Context, rootID string) (*types.TaskInstance, error)
	GetAllHierarchies(ctx context.Context) ([]*types.TaskInstance, error)
	FindHierarchyByTask(ctx context.Context, taskID string) (*types.TaskInstance, error)
	RemoveHierarchy(ctx context.Context, rootID string) error

	// distributed lock
	CreateLock(key string, ttl time.Duration) (lock.DistributedLock, error)
}
