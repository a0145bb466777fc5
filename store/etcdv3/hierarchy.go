package etcdv3

import (
	"context"
	"fmt"

	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// SaveHierarchies upserts hierarchies with their task index
func (m *Mercury) SaveHierarchies(ctx context.Context, roots ...*types.TaskInstance) error {
	if err := store.ValidateHierarchies(roots); err != nil {
		return err
	}
	data := map[string]string{}
	for _, root := range roots {
		b, err := store.Encode(root)
		if err != nil {
			return err
		}
		data[fmt.Sprintf(hierarchyKey, root.ID)] = string(b)
		for _, id := range store.TaskIDs(root) {
			data[fmt.Sprintf(taskIndexKey, id)] = root.ID
		}
	}
	_, err := m.BatchPut(ctx, data)
	return err
}

// GetHierarchy .
func (m *Mercury) GetHierarchy(ctx context.Context, rootID string) (*types.TaskInstance, error) {
	kv, err := m.GetOne(ctx, fmt.Sprintf(hierarchyKey, rootID))
	if errors.Is(err, types.ErrInvaildCount) {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, rootID)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeHierarchy(kv.Value)
}

// GetAllHierarchies sorted by root id
func (m *Mercury) GetAllHierarchies(ctx context.Context) ([]*types.TaskInstance, error) {
	values, err := m.getValues(ctx, hierarchyPrefix)
	if err != nil {
		return nil, err
	}
	roots := make([]*types.TaskInstance, 0, len(values))
	for _, value := range values {
		root, err := store.DecodeHierarchy(value)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return store.SortHierarchies(roots), nil
}

// FindHierarchyByTask .
func (m *Mercury) FindHierarchyByTask(ctx context.Context, taskID string) (*types.TaskInstance, error) {
	kv, err := m.GetOne(ctx, fmt.Sprintf(taskIndexKey, taskID))
	if errors.Is(err, types.ErrInvaildCount) {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, taskID)
	}
	if err != nil {
		return nil, err
	}
	return m.GetHierarchy(ctx, string(kv.Value))
}

// RemoveHierarchy .
func (m *Mercury) RemoveHierarchy(ctx context.Context, rootID string) error {
	root, err := m.GetHierarchy(ctx, rootID)
	if err != nil {
		return err
	}
	keys := []string{fmt.Sprintf(hierarchyKey, rootID)}
	for _, id := range store.TaskIDs(root) {
		keys = append(keys, fmt.Sprintf(taskIndexKey, id))
	}
	_, err = m.BatchDelete(ctx, keys)
	return err
}
