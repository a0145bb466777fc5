package task

import (
	"github.com/flabs/taskmanager/types"
)

// SpecOption configures a task spec
type SpecOption func(*types.TaskSpec)

// AttrOption configures an attribute definition
type AttrOption func(*types.AttributeDefinition)

// Define builds a task spec
func Define(id string, opts ...SpecOption) *types.TaskSpec {
	spec := &types.TaskSpec{ID: id, Action: types.NoAction("Action not assigned")}
	for _, opt := range opts {
		opt(spec)
	}
	return spec
}

// WithDescription .
func WithDescription(desc string) SpecOption {
	return func(s *types.TaskSpec) { s.Description = desc }
}

// WithAction .
func WithAction(action types.TaskAction) SpecOption {
	return func(s *types.TaskSpec) { s.Action = action }
}

// WithRoute is short for WithAction(types.RouteAction(route))
func WithRoute(route string) SpecOption {
	return WithAction(types.RouteAction(route))
}

// WithSubTasks appends sub tasks, a sub task already present by id is skipped
func WithSubTasks(subs ...*types.TaskSpec) SpecOption {
	return func(s *types.TaskSpec) {
		for _, sub := range subs {
			if findSpec(s.SubTasks, sub.ID) == nil {
				s.SubTasks = append(s.SubTasks, sub)
			}
		}
	}
}

// WithAttributes appends attribute definitions
func WithAttributes(attrs ...types.AttributeDefinition) SpecOption {
	return func(s *types.TaskSpec) { s.Attributes = append(s.Attributes, attrs...) }
}

// WithPreConditions appends dependencies by name
func WithPreConditions(names ...string) SpecOption {
	return func(s *types.TaskSpec) {
		for _, name := range names {
			s.PreConditions = append(s.PreConditions, types.DependencyDefinition{Name: name})
		}
	}
}

// Attr builds an attribute definition
func Attr(name string, opts ...AttrOption) types.AttributeDefinition {
	attr := types.AttributeDefinition{Name: name}
	for _, opt := range opts {
		opt(&attr)
	}
	return attr
}

// TaskArgument marks the attribute as part of the task instance id
func TaskArgument() AttrOption {
	return func(a *types.AttributeDefinition) { a.TaskArgument = true }
}

// Mandatory .
func Mandatory() AttrOption {
	return func(a *types.AttributeDefinition) { a.Mandatory = true }
}

// Path collects the specs from root down to target, empty when target is not in the tree
func Path(root, target *types.TaskSpec) []*types.TaskSpec {
	if root.Same(target) {
		return []*types.TaskSpec{root}
	}
	for _, sub := range root.SubTasks {
		if collected := Path(sub, target); len(collected) > 0 {
			return append([]*types.TaskSpec{root}, collected...)
		}
	}
	return nil
}

// Paths returns the path of every matched spec
func Paths(match types.TaskSpecMatch) [][]*types.TaskSpec {
	paths := make([][]*types.TaskSpec, 0, len(match.Matched))
	for _, spec := range match.Matched {
		paths = append(paths, Path(match.Root, spec))
	}
	return paths
}

// HasDependency checks the spec own preconditions
func HasDependency(spec *types.TaskSpec, deps []string) bool {
	for _, pre := range spec.PreConditions {
		if contains(deps, pre.Name) {
			return true
		}
	}
	return false
}

// DependsOn checks the spec and all its descendants
func DependsOn(spec *types.TaskSpec, deps []string) bool {
	if HasDependency(spec, deps) {
		return true
	}
	for _, sub := range spec.SubTasks {
		if DependsOn(sub, deps) {
			return true
		}
	}
	return false
}

// CollectDependent lists every spec of the tree having a precondition in deps
func CollectDependent(spec *types.TaskSpec, deps []string) []*types.TaskSpec {
	return collectDependent(spec, deps, nil)
}

func collectDependent(spec *types.TaskSpec, deps []string, container []*types.TaskSpec) []*types.TaskSpec {
	if HasDependency(spec, deps) && findSpec(container, spec.ID) == nil {
		container = append(container, spec)
	}
	for _, sub := range spec.SubTasks {
		container = collectDependent(sub, deps, container)
	}
	return container
}

// SelectTaskArguments returns the task argument attributes valued from attrs
func SelectTaskArguments(spec *types.TaskSpec, attrs map[string]string) []types.TaskAttribute {
	result := []types.TaskAttribute{}
	for _, def := range spec.Attributes {
		if def.TaskArgument {
			result = append(result, types.TaskAttribute{Definition: def, Value: attrs[def.Name]})
		}
	}
	return result
}

// FindSpec looks a spec up by id in the whole tree
func FindSpec(root *types.TaskSpec, id string) *types.TaskSpec {
	if root.ID == id {
		return root
	}
	for _, sub := range root.SubTasks {
		if s := FindSpec(sub, id); s != nil {
			return s
		}
	}
	return nil
}

func findSpec(specs []*types.TaskSpec, id string) *types.TaskSpec {
	for _, s := range specs {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
