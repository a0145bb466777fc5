package orchestrator

import (
	"context"
	"fmt"

	"github.com/flabs/taskmanager/bus"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/metrics"
	"github.com/flabs/taskmanager/rules"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/utils"
)

const (
	eventOrchestrated = "orchestrated"
	eventUnroutable   = "unroutable"
)

func (o *Orchestrator) handleEvent(ctx context.Context, msg *bus.Message) {
	ev, ok := msg.Body.(*types.Event)
	if !ok || ev == nil {
		log.WithFunc("orchestrator.handleEvent").Warnf(ctx, "unexpected body %T", msg.Body)
		return
	}
	o.orchestrateEvent(utils.WithTracingID(ctx), ev)
}

// orchestrateEvent logs ev in the WAL until it is orchestrated
func (o *Orchestrator) orchestrateEvent(ctx context.Context, ev *types.Event) {
	logger := log.WithFunc("orchestrator.orchestrateEvent").WithEvent(ev)

	commit, err := o.wal.logEvent(ctx, ev)
	if err != nil {
		logger.Error(ctx, err, "WAL failed")
		o.reject(ctx, ev, err)
		return
	}
	defer func() {
		if err := commit(context.TODO()); err != nil {
			logger.Error(ctx, err, "commit WAL failed")
		}
	}()
	o.orchestrate(ctx, ev)
}

// orchestrate matches ev against the hierarchies of the specs depending on it,
// then applies the rules to them, an event which can't be matched becomes unroutable
func (o *Orchestrator) orchestrate(ctx context.Context, ev *types.Event) {
	logger := log.WithFunc("orchestrator.orchestrate").WithEvent(ev)
	if o.config.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.GlobalTimeout)
		defer cancel()
	}

	matches, err := o.repo.FindTaskSpecForDependency(ctx, ev.Type)
	if err == nil && len(matches) == 0 {
		err = types.NewDetailedErr(types.ErrNoTaskSpec, ev.Type)
	}
	if err != nil {
		o.reject(ctx, ev, err)
		return
	}

	if err := o.withSpecsLocked(ctx, rootSpecIDs(matches), func(ctx context.Context) error {
		actions, err := o.MatchTaskHierarchy(ctx, ev)
		if err != nil {
			return err
		}
		if err := o.applyTaskActions(ctx, actions); err != nil {
			logger.Error(ctx, err, "some actions failed")
		}
		return nil
	}); err != nil {
		o.reject(ctx, ev, err)
		return
	}
	metrics.Client.SendEvent(ctx, eventOrchestrated)
	logger.Infof(ctx, "Apply orchestration rules for %s event type", ev.Type)
}

func (o *Orchestrator) reject(ctx context.Context, ev *types.Event, err error) {
	log.WithFunc("orchestrator.reject").WithEvent(ev).Warnf(ctx, "Unable to process with reason %+v", err)
	metrics.Client.SendEvent(ctx, eventUnroutable)
	reason := fmt.Sprintf("Error when accessing task spec repository for %s", ev.Type)
	_ = o.applyTaskAction(ctx, rules.Unroutable(nil, ev, reason))
}
