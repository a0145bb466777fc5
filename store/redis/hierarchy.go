package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// SaveHierarchies upserts hierarchies and the task index in one transaction
func (r *Rediaron) SaveHierarchies(ctx context.Context, roots ...*types.TaskInstance) error {
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
	return r.BatchPut(ctx, data)
}

// GetHierarchy .
func (r *Rediaron) GetHierarchy(ctx context.Context, rootID string) (*types.TaskInstance, error) {
	value, err := r.GetOne(ctx, fmt.Sprintf(hierarchyKey, rootID))
	if errors.Is(err, types.ErrKeyNotExists) {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, rootID)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeHierarchy([]byte(value))
}

// GetAllHierarchies sorted by root id
func (r *Rediaron) GetAllHierarchies(ctx context.Context) ([]*types.TaskInstance, error) {
	data, err := r.ScanValues(ctx, strings.TrimSuffix(hierarchyKey, "%s"))
	if err != nil {
		return nil, err
	}
	roots := make([]*types.TaskInstance, 0, len(data))
	for _, value := range data {
		root, err := store.DecodeHierarchy([]byte(value))
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return store.SortHierarchies(roots), nil
}

// FindHierarchyByTask follows the task index to the root
func (r *Rediaron) FindHierarchyByTask(ctx context.Context, taskID string) (*types.TaskInstance, error) {
	rootID, err := r.GetOne(ctx, fmt.Sprintf(taskIndexKey, taskID))
	if errors.Is(err, types.ErrKeyNotExists) {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, taskID)
	}
	if err != nil {
		return nil, err
	}
	return r.GetHierarchy(ctx, rootID)
}

// RemoveHierarchy drops the hierarchy with its index
func (r *Rediaron) RemoveHierarchy(ctx context.Context, rootID string) error {
	root, err := r.GetHierarchy(ctx, rootID)
	if err != nil {
		return err
	}
	keys := []string{fmt.Sprintf(hierarchyKey, rootID)}
	for _, id := range store.TaskIDs(root) {
		keys = append(keys, fmt.Sprintf(taskIndexKey, id))
	}
	return r.BatchDelete(ctx, keys)
}
