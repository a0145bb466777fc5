package types

// ActionKind tells what to do with a task
type ActionKind string

const (
	// ActionNone nothing to do
	ActionNone ActionKind = "none"
	// ActionRoute send the task to a worker address
	ActionRoute ActionKind = "route"
	// ActionPersist save the task
	ActionPersist ActionKind = "persist"
	// ActionProcessHierarchy run the rules over a hierarchy
	ActionProcessHierarchy ActionKind = "process_hierarchy"
	// ActionUnroutable the event can't be orchestrated
	ActionUnroutable ActionKind = "unroutable"
)

// TaskAction is either attached to a spec (none / route)
// or produced by the rules for a task instance
type TaskAction struct {
	Kind   ActionKind `json:"kind" yaml:"kind" msgpack:"kind"`
	Route  string     `json:"route,omitempty" yaml:"route" msgpack:"route,omitempty"`
	Reason string     `json:"reason,omitempty" yaml:"reason" msgpack:"reason,omitempty"`
	Event  *Event     `json:"event,omitempty" yaml:"-" msgpack:"event,omitempty"`
}

// IsNone .
func (a TaskAction) IsNone() bool {
	return a.Kind == "" || a.Kind == ActionNone
}

// NoAction .
func NoAction(reason string) TaskAction {
	return TaskAction{Kind: ActionNone, Reason: reason}
}

// RouteAction .
func RouteAction(route string) TaskAction {
	return TaskAction{Kind: ActionRoute, Route: route}
}

// PersistAction .
func PersistAction(reason string) TaskAction {
	return TaskAction{Kind: ActionPersist, Reason: reason}
}

// ProcessHierarchyAction .
func ProcessHierarchyAction(event *Event) TaskAction {
	return TaskAction{Kind: ActionProcessHierarchy, Event: event}
}

// UnroutableAction .
func UnroutableAction(reason string, event *Event) TaskAction {
	return TaskAction{Kind: ActionUnroutable, Reason: reason, Event: event}
}

// OrchestrateTaskAction pairs an action with the task it applies to
type OrchestrateTaskAction struct {
	Action TaskAction
	Task   *TaskInstance
}
