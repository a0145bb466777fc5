package cluster

import (
	"context"

	"github.com/flabs/taskmanager/bus"
	"github.com/flabs/taskmanager/types"
)

// bus addresses
const (
	OrchestrateEventAddress = "orchestrate.event"
	UnroutableEventAddress  = "orchestrate.unroutable"
	CloseTaskAddress        = "orchestrate.task.close"
	StartTaskAddress        = "orchestrate.task.start"
	FailTaskAddress         = "orchestrate.task.fail"
	// SourceAddressPrefix + source name receives raw source messages
	SourceAddressPrefix = "source."
)

// HierarchyLock for locking a root spec while its hierarchies are orchestrated
const HierarchyLock = "hierarchy_%s"

// Cluster define all interface
type Cluster interface {
	// spec methods
	AddTaskSpecs(ctx context.Context, specs ...*types.TaskSpec) error
	GetTaskSpec(ctx context.Context, id string) (*types.TaskSpec, error)
	ListTaskSpecs(ctx context.Context) ([]*types.TaskSpec, error)
	RemoveTaskSpec(ctx context.Context, id string) error
	// instance methods
	GetTask(ctx context.Context, id string) (*types.TaskInstance, error)
	ListHierarchies(ctx context.Context) ([]*types.TaskInstance, error)
	RemoveHierarchy(ctx context.Context, id string) error
	PurgeHierarchies(ctx context.Context) (int, error)
	// orchestration methods
	SubmitEvent(ctx context.Context, ev *types.Event) error
	SubmitSourceMessage(ctx context.Context, name string, msg map[string]any) (*types.Event, error)
	CloseTask(ctx context.Context, id string) (string, error)
	StartTask(ctx context.Context, id string) (string, error)
	FailTask(ctx context.Context, id string) (string, error)
	// Watch streams the messages of address until ctx is done
	Watch(ctx context.Context, address string) (<-chan *bus.Message, error)
	// meta
	GetIdentifier() string
	DisasterRecover(ctx context.Context)
	Finalizer()
}
