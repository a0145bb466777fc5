package rules

import (
	"fmt"
	"time"

	"github.com/flabs/taskmanager/task"
	"github.com/flabs/taskmanager/types"
)

var now = time.Now

// Schedule moves the task to SCHEDULED with the action of its spec
func Schedule(t *types.TaskInstance) types.OrchestrateTaskAction {
	scheduled := t.Clone()
	ts := now()
	scheduled.Status = types.TaskScheduled
	scheduled.ScheduleTime = &ts
	return types.OrchestrateTaskAction{Action: t.Spec.Action, Task: scheduled}
}

// Complete moves the task to COMPLETED, start time defaults to end time
func Complete(t *types.TaskInstance) types.OrchestrateTaskAction {
	completed := t.Clone()
	ts := now()
	completed.Status = types.TaskCompleted
	completed.EndTime = &ts
	if completed.StartTime == nil {
		completed.StartTime = &ts
	}
	return types.OrchestrateTaskAction{Action: types.PersistAction(fmt.Sprintf("Task %s completed", t.ID)), Task: completed}
}

// Fail moves the task to FAILED
func Fail(t *types.TaskInstance) types.OrchestrateTaskAction {
	failed := t.Clone()
	ts := now()
	failed.Status = types.TaskFailed
	failed.EndTime = &ts
	return types.OrchestrateTaskAction{Action: types.PersistAction(fmt.Sprintf("Task %s failed", t.ID)), Task: failed}
}

// NoAction keeps the task as it is
func NoAction(t *types.TaskInstance, reason string) types.OrchestrateTaskAction {
	return types.OrchestrateTaskAction{Action: types.NoAction(reason), Task: t}
}

// Orchestrate asks for the hierarchy to be evaluated against ev
func Orchestrate(t *types.TaskInstance, ev *types.Event) types.OrchestrateTaskAction {
	return types.OrchestrateTaskAction{Action: types.ProcessHierarchyAction(ev), Task: t}
}

// Unroutable .
func Unroutable(t *types.TaskInstance, ev *types.Event, reason string) types.OrchestrateTaskAction {
	return types.OrchestrateTaskAction{Action: types.UnroutableAction(reason, ev), Task: t}
}

// CompletionEvent is the event announcing t completed, nil while children are not all completed.
// Its type is the spec id so that dependent specs are triggered by it.
func CompletionEvent(t *types.TaskInstance) *types.Event {
	if !task.ChildrenCompleted(t) {
		return nil
	}
	return &types.Event{ID: t.ID, Type: t.Spec.ID, Payload: task.AttributesPayload(t.Attributes)}
}
