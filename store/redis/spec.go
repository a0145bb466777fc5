package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// AddTaskSpecs upserts root specs
func (r *Rediaron) AddTaskSpecs(ctx context.Context, specs ...*types.TaskSpec) error {
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
	return r.BatchPut(ctx, data)
}

// GetTaskSpec .
func (r *Rediaron) GetTaskSpec(ctx context.Context, id string) (*types.TaskSpec, error) {
	value, err := r.GetOne(ctx, fmt.Sprintf(specKey, id))
	if errors.Is(err, types.ErrKeyNotExists) {
		return nil, types.NewDetailedErr(types.ErrTaskSpecNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeSpec([]byte(value))
}

// GetAllTaskSpecs sorted by id
func (r *Rediaron) GetAllTaskSpecs(ctx context.Context) ([]*types.TaskSpec, error) {
	data, err := r.ScanValues(ctx, strings.TrimSuffix(specKey, "%s"))
	if err != nil {
		return nil, err
	}
	specs := make([]*types.TaskSpec, 0, len(data))
	for _, value := range data {
		spec, err := store.DecodeSpec([]byte(value))
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return store.SortSpecs(specs), nil
}

// RemoveTaskSpec .
func (r *Rediaron) RemoveTaskSpec(ctx context.Context, id string) error {
	n, err := r.cli.Del(ctx, fmt.Sprintf(specKey, id)).Result()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return types.NewDetailedErr(types.ErrTaskSpecNotFound, id)
	}
	return nil
}
