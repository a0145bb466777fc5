package orchestrator

import (
	"context"

	"github.com/flabs/taskmanager/bus"
	"github.com/flabs/taskmanager/cluster"
	"github.com/flabs/taskmanager/codec"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/metrics"
	"github.com/flabs/taskmanager/rules"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

func (o *Orchestrator) applyTaskActions(ctx context.Context, actions []types.OrchestrateTaskAction) error {
	var errs error
	for _, oa := range actions {
		if err := o.applyTaskAction(ctx, oa); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

func (o *Orchestrator) applyTaskAction(ctx context.Context, oa types.OrchestrateTaskAction) error {
	logger := log.WithFunc("orchestrator.applyTaskAction").WithField("kind", oa.Action.Kind).WithTask(oa.Task)
	metrics.Client.SendTaskAction(ctx, oa.Action.Kind)

	switch oa.Action.Kind {
	case types.ActionProcessHierarchy:
		return o.applyTaskActions(ctx, rules.Evaluate(oa.Task, oa.Action.Event))
	case types.ActionRoute:
		return o.route(ctx, oa.Action.Route, oa.Task)
	case types.ActionNone, "":
		logger.Infof(ctx, "no task action because %s", oa.Action.Reason)
		return nil
	case types.ActionPersist:
		logger.Infof(ctx, "persist action with the reason: %s", oa.Action.Reason)
		if err := o.repo.SaveInstances(ctx, oa.Task); err != nil {
			logger.Error(ctx, err, "persist failed")
			return err
		}
		if oa.Task.Status == types.TaskFailed {
			logger.Warnf(ctx, "task %s failed", oa.Task.ID)
		}
		return nil
	case types.ActionUnroutable:
		return o.unroutable(ctx, oa.Action)
	}
	logger.Warn(ctx, "not applicable action")
	return nil
}

// route persists the task then sends it to the route address
func (o *Orchestrator) route(ctx context.Context, route string, t *types.TaskInstance) error {
	logger := log.WithFunc("orchestrator.route").WithTask(t).WithField("route", route)
	if err := o.repo.SaveInstances(ctx, t); err != nil {
		logger.Error(ctx, err, "persist failed")
		return err
	}
	logger.Infof(ctx, "persisted the task with status %s", t.Status)
	if err := o.bus.Send(ctx, route, t, bus.WithCodec(codec.TaskInstance)); err != nil {
		logger.Error(ctx, err, "route failed")
		return err
	}
	return nil
}

func (o *Orchestrator) unroutable(ctx context.Context, action types.TaskAction) error {
	logger := log.WithFunc("orchestrator.unroutable")
	logger.Warnf(ctx, "unroutable event with reason %s", action.Reason)
	if action.Event == nil {
		return nil
	}
	if err := o.bus.Send(ctx, cluster.UnroutableEventAddress, action.Event, bus.WithCodec(codec.Event)); err != nil {
		logger.Error(ctx, err, "drop unroutable event")
	}
	return nil
}
