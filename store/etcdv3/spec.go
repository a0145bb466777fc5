package etcdv3

import (
	"context"
	"fmt"

	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// AddTaskSpecs upserts root specs in one transaction
func (m *Mercury) AddTaskSpecs(ctx context.Context, specs ...*types.TaskSpec) error {
	if err := store.ValidateSpecs(specs); err != nil {
		return err
	}
	data := map[string]string{}
	for _, spec := range specs {
		b, err := store.Encode(spec)
		if err != nil {
			return err
		}
		data[fmt.Sprintf(specKey, spec.ID)] = string(b)
	}
	_, err := m.BatchPut(ctx, data)
	return err
}

// GetTaskSpec .
func (m *Mercury) GetTaskSpec(ctx context.Context, id string) (*types.TaskSpec, error) {
	kv, err := m.GetOne(ctx, fmt.Sprintf(specKey, id))
	if errors.Is(err, types.ErrInvaildCount) {
		return nil, types.NewDetailedErr(types.ErrTaskSpecNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeSpec(kv.Value)
}

// GetAllTaskSpecs sorted by id
func (m *Mercury) GetAllTaskSpecs(ctx context.Context) ([]*types.TaskSpec, error) {
	values, err := m.getValues(ctx, specPrefix)
	if err != nil {
		return nil, err
	}
	specs := make([]*types.TaskSpec, 0, len(values))
	for _, value := range values {
		spec, err := store.DecodeSpec(value)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return store.SortSpecs(specs), nil
}

// RemoveTaskSpec .
func (m *Mercury) RemoveTaskSpec(ctx context.Context, id string) error {
	resp, err := m.Delete(ctx, fmt.Sprintf(specKey, id))
	if err != nil {
		return err
	}
	if resp.Deleted == 0 {
		return types.NewDetailedErr(types.ErrTaskSpecNotFound, id)
	}
	return nil
}
