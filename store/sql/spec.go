package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// AddTaskSpecs upserts root specs
func (s *Store) AddTaskSpecs(ctx context.Context, specs ...*types.TaskSpec) error {
	if err := store.ValidateSpecs(specs); err != nil {
		return err
	}
	query := s.upsert(s.tables.specs, "id", "body")
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, spec := range specs {
			b, err := store.Encode(spec)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, spec.ID, string(b)); err != nil {
				return errors.Wrapf(err, "save spec %s", spec.ID)
			}
		}
		return nil
	})
}

// GetTaskSpec .
func (s *Store) GetTaskSpec(ctx context.Context, id string) (*types.TaskSpec, error) {
	body, err := s.queryBody(ctx, fmt.Sprintf("SELECT body FROM %s WHERE id = ?", s.tables.specs), id)
	if errors.Is(err, types.ErrKeyNotExists) {
		return nil, types.NewDetailedErr(types.ErrTaskSpecNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeSpec(body)
}

// GetAllTaskSpecs sorted by id
func (s *Store) GetAllTaskSpecs(ctx context.Context) ([]*types.TaskSpec, error) {
	bodies, err := s.queryBodies(ctx, fmt.Sprintf("SELECT body FROM %s ORDER BY id", s.tables.specs))
	if err != nil {
		return nil, err
	}
	specs := make([]*types.TaskSpec, 0, len(bodies))
	for _, body := range bodies {
		spec, err := store.DecodeSpec(body)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// RemoveTaskSpec .
func (s *Store) RemoveTaskSpec(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tables.specs)), id)
	if err != nil {
		return errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return types.NewDetailedErr(types.ErrTaskSpecNotFound, id)
	}
	return nil
}
