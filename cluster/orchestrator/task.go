package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flabs/taskmanager/bus"
	"github.com/flabs/taskmanager/cluster"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/rules"
	"github.com/flabs/taskmanager/task"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/utils"

	"github.com/cockroachdb/errors"
)

// CloseTask asks the orchestrators to complete a task, it returns the reply body
func (o *Orchestrator) CloseTask(ctx context.Context, id string) (string, error) {
	return bus.RequestBody[string](ctx, o.bus, cluster.CloseTaskAddress, id)
}

// StartTask .
func (o *Orchestrator) StartTask(ctx context.Context, id string) (string, error) {
	return bus.RequestBody[string](ctx, o.bus, cluster.StartTaskAddress, id)
}

// FailTask .
func (o *Orchestrator) FailTask(ctx context.Context, id string) (string, error) {
	return bus.RequestBody[string](ctx, o.bus, cluster.FailTaskAddress, id)
}

func (o *Orchestrator) handleTask(status types.TaskStatus) bus.Handler {
	return func(ctx context.Context, msg *bus.Message) {
		ctx = utils.WithTracingID(ctx)
		logger := log.WithFunc("orchestrator.handleTask").WithField("status", status)
		id, ok := msg.Body.(string)
		if !ok || id == "" {
			_ = msg.Fail(ctx, http.StatusBadRequest, types.ErrEmptyTaskID.Error())
			return
		}
		logger.Infof(ctx, "An attempt to move the task %s", id)
		reply, err := o.updateTask(ctx, id, status)
		if err != nil {
			logger.Error(ctx, err, "update task failed")
			_ = msg.Fail(ctx, replyCode(err), err.Error())
			return
		}
		if err := msg.Reply(ctx, reply); err != nil {
			logger.Error(ctx, err, "reply failed")
		}
	}
}

// updateTask moves a task to status.
// Completing or failing a task re-evaluates its pending hierarchy,
// a completed task then emits its completion event.
func (o *Orchestrator) updateTask(ctx context.Context, id string, status types.TaskStatus) (string, error) {
	logger := log.WithFunc("orchestrator.updateTask").WithField("task", id)
	root, err := o.repo.Store().FindHierarchyByTask(ctx, id)
	if err != nil {
		return "", errors.Wrap(types.ErrTaskNotFound, err.Error())
	}

	var completion *types.Event
	if err := o.withSpecsLocked(ctx, []string{root.Spec.ID}, func(ctx context.Context) error {
		inst, err := o.repo.FindTaskInstance(ctx, id)
		if err != nil {
			return err
		}
		updated := withStatus(inst, status)
		if err := o.repo.SaveInstances(ctx, updated); err != nil {
			return err
		}
		if status == types.TaskStarted {
			return nil
		}
		logger.Infof(ctx, "Process pending hierarchies for %s", id)
		completion = o.processPending(ctx, id)
		return nil
	}); err != nil {
		return "", err
	}

	if completion != nil && status == types.TaskCompleted {
		o.orchestrateEvent(ctx, completion)
	}
	return fmt.Sprintf("success - %s", id), nil
}

// processPending evaluates the pending hierarchy holding the task,
// without one the stored task is the completion candidate
func (o *Orchestrator) processPending(ctx context.Context, id string) *types.Event {
	logger := log.WithFunc("orchestrator.processPending").WithField("task", id)
	pending, err := o.repo.FindPendingHierarchy(ctx, id)
	if err == nil {
		logger.Infof(ctx, "Found %s as pending", pending.ID)
		sub := task.FindByTaskID(pending, id)
		if err := o.applyTaskActions(ctx, rules.Evaluate(pending, nil)); err != nil {
			logger.Error(ctx, err, "some actions failed")
		}
		if sub == nil {
			return nil
		}
		return rules.CompletionEvent(sub)
	}

	candidate, err := o.repo.FindTaskInstance(ctx, id)
	if err != nil {
		logger.Error(ctx, err, "no completion candidate")
		return nil
	}
	return rules.CompletionEvent(candidate)
}

func withStatus(inst *types.TaskInstance, status types.TaskStatus) *types.TaskInstance {
	updated := inst.Clone()
	updated.Status = status
	now := time.Now()
	switch status {
	case types.TaskStarted:
		updated.StartTime = &now
	case types.TaskCompleted, types.TaskFailed:
		updated.EndTime = &now
		if updated.StartTime == nil {
			updated.StartTime = &now
		}
	}
	return updated
}

func replyCode(err error) int {
	switch {
	case errors.Is(err, types.ErrTaskNotFound), errors.Is(err, types.ErrHierarchyNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrLockTimeout):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
