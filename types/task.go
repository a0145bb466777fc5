package types

import (
	"time"
)

// TaskStatus is the life-cycle state of a task instance
type TaskStatus string

const (
	// TaskStarted .
	TaskStarted TaskStatus = "STARTED"
	// TaskFailed .
	TaskFailed TaskStatus = "FAILED"
	// TaskCompleted .
	TaskCompleted TaskStatus = "COMPLETED"
	// TaskScheduled .
	TaskScheduled TaskStatus = "SCHEDULED"
	// TaskPending .
	TaskPending TaskStatus = "PENDING"
)

// ActiveStatuses are the statuses of a hierarchy node which is still in flight
var ActiveStatuses = []TaskStatus{TaskPending, TaskScheduled, TaskStarted}

// ParseTaskStatus validates a status name
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case TaskStarted, TaskFailed, TaskCompleted, TaskScheduled, TaskPending:
		return st, nil
	}
	return "", NewDetailedErr(ErrInvalidStatus, s)
}

// AttributeDefinition describes a task attribute.
// A mandatory attribute is expected to be present in the request creating the task,
// a task argument takes part in the task instance identification.
type AttributeDefinition struct {
	Name         string `json:"name" yaml:"name" msgpack:"name"`
	TaskArgument bool   `json:"task_argument,omitempty" yaml:"task_argument" msgpack:"task_argument,omitempty"`
	Mandatory    bool   `json:"mandatory,omitempty" yaml:"mandatory" msgpack:"mandatory,omitempty"`
}

// DependencyDefinition names an event a task waits for
type DependencyDefinition struct {
	Name string `json:"name" yaml:"name" msgpack:"name"`
}

// TaskSpec is a uniquely identifiable task template.
// Sub tasks form a tree, the root of the tree identifies the hierarchy.
type TaskSpec struct {
	ID            string                 `json:"id" yaml:"id" msgpack:"id"`
	Description   string                 `json:"description,omitempty" yaml:"description" msgpack:"description,omitempty"`
	Action        TaskAction             `json:"action" yaml:"action" msgpack:"action"`
	SubTasks      []*TaskSpec            `json:"sub_tasks,omitempty" yaml:"sub_tasks" msgpack:"sub_tasks,omitempty"`
	PreConditions []DependencyDefinition `json:"pre_conditions,omitempty" yaml:"pre_conditions" msgpack:"pre_conditions,omitempty"`
	Attributes    []AttributeDefinition  `json:"attributes,omitempty" yaml:"attributes" msgpack:"attributes,omitempty"`
}

// Attribute returns the attribute definition by name,
// an unknown name gives a plain definition
func (s *TaskSpec) Attribute(name string) AttributeDefinition {
	for _, attr := range s.Attributes {
		if attr.Name == name {
			return attr
		}
	}
	return AttributeDefinition{Name: name}
}

// Same compares specs by identity
func (s *TaskSpec) Same(o *TaskSpec) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.ID == o.ID
}

// TaskAttribute is a valued attribute of a task instance
type TaskAttribute struct {
	Definition AttributeDefinition `json:"definition" msgpack:"definition"`
	Value      string              `json:"value,omitempty" msgpack:"value,omitempty"`
}

// TaskDependency tracks a precondition of a task instance
type TaskDependency struct {
	Name      string `json:"name" msgpack:"name"`
	Completed bool   `json:"completed" msgpack:"completed"`
}

// TaskInstance is a particular run of a task spec
type TaskInstance struct {
	ID           string           `json:"id" msgpack:"id"`
	Status       TaskStatus       `json:"status" msgpack:"status"`
	Spec         *TaskSpec        `json:"spec" msgpack:"spec"`
	Attributes   []TaskAttribute  `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
	SubTasks     []*TaskInstance  `json:"sub_tasks,omitempty" msgpack:"sub_tasks,omitempty"`
	DependsOn    []TaskDependency `json:"depends_on,omitempty" msgpack:"depends_on,omitempty"`
	ScheduleTime *time.Time       `json:"schedule_time,omitempty" msgpack:"schedule_time,omitempty"`
	StartTime    *time.Time       `json:"start_time,omitempty" msgpack:"start_time,omitempty"`
	EndTime      *time.Time       `json:"end_time,omitempty" msgpack:"end_time,omitempty"`
}

// Attribute returns the valued attribute by name
func (t *TaskInstance) Attribute(name string) (TaskAttribute, bool) {
	for _, attr := range t.Attributes {
		if attr.Definition.Name == name {
			return attr, true
		}
	}
	return TaskAttribute{}, false
}

// Clone copies the node, the sub tasks slice is copied but sub tasks are shared
func (t *TaskInstance) Clone() *TaskInstance {
	n := *t
	if t.SubTasks != nil {
		n.SubTasks = make([]*TaskInstance, len(t.SubTasks))
		copy(n.SubTasks, t.SubTasks)
	}
	return &n
}

// TaskSpecMatch is a root spec together with the specs matched inside its tree
type TaskSpecMatch struct {
	Root    *TaskSpec   `json:"root"`
	Matched []*TaskSpec `json:"matched"`
}

// HierarchyMatch binds a spec match to an existing hierarchy, Root is nil when none exists
type HierarchyMatch struct {
	SpecMatch TaskSpecMatch `json:"spec_match"`
	Root      *TaskInstance `json:"root,omitempty"`
}

// Event is an orchestration event
type Event struct {
	ID      string         `json:"id" msgpack:"id"`
	Type    string         `json:"type" msgpack:"type"`
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`
}
