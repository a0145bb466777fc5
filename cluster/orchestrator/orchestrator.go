package orchestrator

import (
	"context"
	"testing"

	"github.com/flabs/taskmanager/bus"
	"github.com/flabs/taskmanager/cluster"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/repository"
	"github.com/flabs/taskmanager/source"
	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/store/factory"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// Orchestrator implement the cluster
type Orchestrator struct {
	config     types.Config
	repo       *repository.Repository
	bus        *bus.Bus
	sources    *source.Registry
	wal        *WAL
	identifier string
	consumers  []*bus.Consumer
}

// New returns a new orchestrator on the configured store
func New(ctx context.Context, config types.Config, b *bus.Bus, t *testing.T) (*Orchestrator, error) {
	logger := log.WithFunc("orchestrator.New")

	sto, err := factory.NewStore(ctx, config, t)
	if err != nil {
		logger.Error(ctx, err)
		return nil, errors.WithStack(err)
	}
	return NewWithStore(ctx, config, b, sto)
}

// NewWithStore returns a new orchestrator on sto
func NewWithStore(ctx context.Context, config types.Config, b *bus.Bus, sto store.Store) (*Orchestrator, error) {
	logger := log.WithFunc("orchestrator.NewWithStore")
	o := &Orchestrator{
		config:  config,
		repo:    repository.New(sto),
		bus:     b,
		sources: source.NewRegistry(config.Sources),
	}

	var err error
	if o.identifier, err = config.Identifier(); err != nil {
		logger.Error(ctx, err)
		return nil, err
	}
	if o.wal, err = newWAL(ctx, config, o); err != nil {
		logger.Error(ctx, err)
		return nil, err
	}
	return o, nil
}

// Start registers the orchestration consumers on the bus
func (o *Orchestrator) Start(ctx context.Context) error {
	logger := log.WithFunc("orchestrator.Start")
	handlers := map[string]bus.Handler{
		cluster.OrchestrateEventAddress: o.handleEvent,
		cluster.CloseTaskAddress:        o.handleTask(types.TaskCompleted),
		cluster.StartTaskAddress:        o.handleTask(types.TaskStarted),
		cluster.FailTaskAddress:         o.handleTask(types.TaskFailed),
	}
	for _, name := range o.sources.Names() {
		handlers[cluster.SourceAddressPrefix+name] = o.handleSource(name)
	}

	for address, handler := range handlers {
		c, err := o.bus.Consumer(ctx, address, handler)
		if err != nil {
			logger.Errorf(ctx, err, "register %s failed", address)
			return err
		}
		o.consumers = append(o.consumers, c)
	}
	logger.Infof(ctx, "%d consumers registered", len(o.consumers))
	return nil
}

// DisasterRecover replays the events which were not committed
func (o *Orchestrator) DisasterRecover(ctx context.Context) {
	o.wal.Recover(ctx)
}

// Finalizer use for defer
func (o *Orchestrator) Finalizer() {
	for _, c := range o.consumers {
		c.Unregister()
	}
	o.consumers = nil
	if err := o.wal.Close(context.TODO()); err != nil {
		log.WithFunc("orchestrator.Finalizer").Error(context.TODO(), err, "close WAL failed")
	}
}

// GetIdentifier returns the identifier of orchestrator
func (o *Orchestrator) GetIdentifier() string {
	return o.identifier
}

// Repository .
func (o *Orchestrator) Repository() *repository.Repository {
	return o.repo
}

var _ cluster.Cluster = (*Orchestrator)(nil)
