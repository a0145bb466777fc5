package store

import (
	"encoding/json"
	"sort"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// TaskIDs lists every task id of a hierarchy, pre-order
func TaskIDs(root *types.TaskInstance) []string {
	ids := []string{root.ID}
	for _, sub := range root.SubTasks {
		ids = append(ids, TaskIDs(sub)...)
	}
	return ids
}

// Validate the specs before writing them
func ValidateSpecs(specs []*types.TaskSpec) error {
	for _, spec := range specs {
		if spec == nil || spec.ID == "" {
			return errors.WithStack(types.ErrEmptySpecID)
		}
	}
	return nil
}

// ValidateHierarchies before writing them
func ValidateHierarchies(roots []*types.TaskInstance) error {
	for _, root := range roots {
		if root == nil || root.ID == "" {
			return errors.WithStack(types.ErrEmptyTaskID)
		}
	}
	return nil
}

// Encode a stored value
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	return b, errors.WithStack(err)
}

// DecodeSpec .
func DecodeSpec(b []byte) (*types.TaskSpec, error) {
	spec := &types.TaskSpec{}
	return spec, errors.WithStack(json.Unmarshal(b, spec))
}

// DecodeHierarchy .
func DecodeHierarchy(b []byte) (*types.TaskInstance, error) {
	root := &types.TaskInstance{}
	return root, errors.WithStack(json.Unmarshal(b, root))
}

// SortSpecs by id
func SortSpecs(specs []*types.TaskSpec) []*types.TaskSpec {
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

// SortHierarchies by root id
func SortHierarchies(roots []*types.TaskInstance) []*types.TaskInstance {
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })
	return roots
}
