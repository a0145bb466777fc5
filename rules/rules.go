package rules

import (
	"fmt"

	"github.com/flabs/taskmanager/task"
	"github.com/flabs/taskmanager/types"
)

const incompleteHierarchy = "Hierarchy is not complete"

// an existing node matched by an event has to be in one of these
var orchestrationReady = map[types.TaskStatus]bool{
	types.TaskCompleted: true,
	types.TaskFailed:    true,
	types.TaskPending:   true,
}

// Evaluate works out the next actions of a hierarchy.
// ev is the event which triggered the evaluation and may be nil.
func Evaluate(t *types.TaskInstance, ev *types.Event) []types.OrchestrateTaskAction {
	if ev != nil {
		if !isOrchestrationReady(t, ev) {
			return []types.OrchestrateTaskAction{
				Unroutable(t, ev, fmt.Sprintf("There is a in PROGRESS or SCHEDULED task instance that matches %s event", ev.Type)),
			}
		}
	} else if !task.IsHierarchyComplete(t) {
		return []types.OrchestrateTaskAction{NoAction(t, incompleteHierarchy)}
	}

	if t.Status != types.TaskPending {
		return []types.OrchestrateTaskAction{}
	}
	if !task.AllDependenciesMet(t) {
		return []types.OrchestrateTaskAction{NoAction(t, "")}
	}
	if task.ChildrenCompleted(t) {
		if t.Spec.Action.IsNone() {
			return []types.OrchestrateTaskAction{Complete(t)}
		}
		return []types.OrchestrateTaskAction{Schedule(t)}
	}

	results := []types.OrchestrateTaskAction{}
	for _, sub := range pendingSubTasks(t) {
		results = append(results, Evaluate(sub, relatedEvent(sub, ev))...)
	}
	switch {
	case len(results) == 0 && task.ChildrenFailed(t):
		return []types.OrchestrateTaskAction{Fail(t)}
	case anyFailure(results):
		return append([]types.OrchestrateTaskAction{Fail(t)}, results...)
	case len(results) > 0 && allComplete(results):
		return append([]types.OrchestrateTaskAction{Complete(t)}, results...)
	}
	return results
}

func isOrchestrationReady(t *types.TaskInstance, ev *types.Event) bool {
	if matched := task.FindBySpecID(t, ev.Type); matched != nil {
		return orchestrationReady[matched.Status]
	}
	return task.DependsOn(t.Spec, []string{ev.Type})
}

// siblings not concerned by the event are evaluated without it
func relatedEvent(t *types.TaskInstance, ev *types.Event) *types.Event {
	if ev == nil {
		return nil
	}
	if task.FindBySpecID(t, ev.Type) != nil || task.DependsOn(t.Spec, []string{ev.Type}) {
		return ev
	}
	return nil
}

// the first pending sub task can always go, the others only when their dependencies are met
func pendingSubTasks(t *types.TaskInstance) []*types.TaskInstance {
	pending := []*types.TaskInstance{}
	for _, sub := range t.SubTasks {
		if sub.Status != types.TaskPending {
			continue
		}
		if len(pending) == 0 || task.AllDependenciesMet(sub) {
			pending = append(pending, sub)
		}
	}
	return pending
}

func allComplete(actions []types.OrchestrateTaskAction) bool {
	for _, action := range actions {
		if action.Task.Status != types.TaskCompleted || !task.IsHierarchyComplete(action.Task) {
			return false
		}
	}
	return true
}

func anyFailure(actions []types.OrchestrateTaskAction) bool {
	for _, action := range actions {
		if action.Task.Status == types.TaskFailed {
			return true
		}
	}
	return false
}
