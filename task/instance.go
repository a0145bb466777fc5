package task

import (
	"strings"

	"github.com/flabs/taskmanager/types"
)

// NewInstanceWithID creates a pending task instance from a spec,
// dependencies in deps are marked as completed
func NewInstanceWithID(spec *types.TaskSpec, id string, attrs map[string]string, deps []string) *types.TaskInstance {
	dependsOn := make([]types.TaskDependency, 0, len(spec.PreConditions))
	for _, pre := range spec.PreConditions {
		dependsOn = append(dependsOn, types.TaskDependency{Name: pre.Name, Completed: contains(deps, pre.Name)})
	}
	attributes := make([]types.TaskAttribute, 0, len(spec.Attributes))
	for _, def := range spec.Attributes {
		attributes = append(attributes, types.TaskAttribute{Definition: def, Value: attrs[def.Name]})
	}
	return &types.TaskInstance{
		ID:         id,
		Status:     types.TaskPending,
		Spec:       spec,
		Attributes: attributes,
		DependsOn:  dependsOn,
	}
}

// NewInstance is NewInstanceWithID with the id made of the spec id and the task arguments
func NewInstance(spec *types.TaskSpec, attrs map[string]string, deps []string) *types.TaskInstance {
	return NewInstanceWithID(spec, InstanceID(spec, attrs), attrs, deps)
}

// InstanceID joins spec id and task argument values with "-"
func InstanceID(spec *types.TaskSpec, attrs map[string]string) string {
	b := strings.Builder{}
	b.WriteString(spec.ID)
	for _, def := range spec.Attributes {
		if def.TaskArgument {
			b.WriteString("-")
			b.WriteString(attrs[def.Name])
		}
	}
	return b.String()
}

// NewHierarchy builds the instance tree of a spec match.
// Only branches depending on deps are created and a matched spec stays a leaf.
func NewHierarchy(match types.TaskSpecMatch, attrs map[string]string, deps []string) *types.TaskInstance {
	return buildHierarchy(match.Root, match.Matched, attrs, deps)
}

func buildHierarchy(spec *types.TaskSpec, matched []*types.TaskSpec, attrs map[string]string, deps []string) *types.TaskInstance {
	inst := NewInstance(spec, attrs, deps)
	if findSpec(matched, spec.ID) != nil {
		return inst
	}
	for _, sub := range spec.SubTasks {
		if DependsOn(sub, deps) {
			inst.SubTasks = append(inst.SubTasks, buildHierarchy(sub, matched, attrs, deps))
		}
	}
	return inst
}

// Fill creates the hierarchy of a match or adds every matched path into the existing one
func Fill(hm types.HierarchyMatch, attrs map[string]string, deps []string) types.HierarchyMatch {
	if hm.Root == nil {
		hm.Root = NewHierarchy(hm.SpecMatch, attrs, deps)
		return hm
	}
	root := hm.Root
	for _, path := range Paths(hm.SpecMatch) {
		root = Add(root, attrs, path, deps)
	}
	hm.Root = root
	return hm
}

// Add fills a spec path into an instance tree and returns the new tree.
// The path starts at inst's spec. Existing nodes are kept as they are
// and missing ones are created as pending instances.
func Add(inst *types.TaskInstance, attrs map[string]string, path []*types.TaskSpec, deps []string) *types.TaskInstance {
	if len(path) <= 1 || !path[0].Same(inst.Spec) {
		return inst
	}
	next := path[1]
	n := inst.Clone()
	for i, sub := range n.SubTasks {
		if sub.Spec.Same(next) {
			n.SubTasks[i] = Add(sub, attrs, path[1:], deps)
			return n
		}
	}
	n.SubTasks = append(n.SubTasks, Add(NewInstance(next, attrs, deps), attrs, path[1:], deps))
	return n
}

// FindSub returns the first node of the tree satisfying predicate, pre-order
func FindSub(inst *types.TaskInstance, predicate func(*types.TaskInstance) bool) *types.TaskInstance {
	if inst == nil {
		return nil
	}
	if predicate(inst) {
		return inst
	}
	for _, sub := range inst.SubTasks {
		if r := FindSub(sub, predicate); r != nil {
			return r
		}
	}
	return nil
}

// FindBySpecID .
func FindBySpecID(inst *types.TaskInstance, specID string) *types.TaskInstance {
	return FindSub(inst, func(t *types.TaskInstance) bool { return t.Spec.ID == specID })
}

// FindByTaskID .
func FindByTaskID(inst *types.TaskInstance, taskID string) *types.TaskInstance {
	return FindSub(inst, func(t *types.TaskInstance) bool { return t.ID == taskID })
}

// ContainsTask .
func ContainsTask(inst *types.TaskInstance, taskID string) bool {
	return FindByTaskID(inst, taskID) != nil
}

// UpdateSub replaces the branch having the same spec as newSub
func UpdateSub(inst, newSub *types.TaskInstance) *types.TaskInstance {
	if inst.Spec.Same(newSub.Spec) {
		return newSub
	}
	n := inst.Clone()
	for i, sub := range n.SubTasks {
		n.SubTasks[i] = UpdateSub(sub, newSub)
	}
	return n
}

// IsHierarchyComplete tells if every level holds one instance per sub spec
func IsHierarchyComplete(inst *types.TaskInstance) bool {
	if len(inst.SubTasks) != len(inst.Spec.SubTasks) {
		return false
	}
	for _, sub := range inst.SubTasks {
		if !IsHierarchyComplete(sub) {
			return false
		}
	}
	return true
}

// ChildrenCompleted tells if the hierarchy is complete and all direct children are COMPLETED
func ChildrenCompleted(inst *types.TaskInstance) bool {
	if !IsHierarchyComplete(inst) {
		return false
	}
	for _, sub := range inst.SubTasks {
		if sub.Status != types.TaskCompleted {
			return false
		}
	}
	return true
}

// ChildrenFailed .
func ChildrenFailed(inst *types.TaskInstance) bool {
	for _, sub := range inst.SubTasks {
		if sub.Status == types.TaskFailed {
			return true
		}
	}
	return false
}

// AllDependenciesMet .
func AllDependenciesMet(inst *types.TaskInstance) bool {
	for _, dep := range inst.DependsOn {
		if !dep.Completed {
			return false
		}
	}
	return true
}

// DependencyMet reports a dependency state, an unknown dependency is met
func DependencyMet(inst *types.TaskInstance, name string) bool {
	for _, dep := range inst.DependsOn {
		if dep.Name == name {
			return dep.Completed
		}
	}
	return true
}

// MatchAttributes checks inst carries every queried attribute value
func MatchAttributes(inst *types.TaskInstance, query []types.TaskAttribute) bool {
	for _, q := range query {
		attr, ok := inst.Attribute(q.Definition.Name)
		if !ok || attr.Value != q.Value {
			return false
		}
	}
	return true
}
