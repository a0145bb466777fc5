package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// SaveHierarchies upserts hierarchies and their task index in one transaction
func (s *Store) SaveHierarchies(ctx context.Context, roots ...*types.TaskInstance) error {
	if err := store.ValidateHierarchies(roots); err != nil {
		return err
	}
	saveRoot := s.upsert(s.tables.hierarchies, "id", "body")
	saveIndex := s.upsert(s.tables.tasks, "task_id", "root_id")
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, root := range roots {
			b, err := store.Encode(root)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, saveRoot, root.ID, string(b)); err != nil {
				return errors.Wrapf(err, "save hierarchy %s", root.ID)
			}
			for _, id := range store.TaskIDs(root) {
				if _, err := tx.ExecContext(ctx, saveIndex, id, root.ID); err != nil {
					return errors.Wrapf(err, "index task %s", id)
				}
			}
		}
		return nil
	})
}

// GetHierarchy .
func (s *Store) GetHierarchy(ctx context.Context, rootID string) (*types.TaskInstance, error) {
	body, err := s.queryBody(ctx, fmt.Sprintf("SELECT body FROM %s WHERE id = ?", s.tables.hierarchies), rootID)
	if errors.Is(err, types.ErrKeyNotExists) {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, rootID)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeHierarchy(body)
}

// GetAllHierarchies sorted by root id
func (s *Store) GetAllHierarchies(ctx context.Context) ([]*types.TaskInstance, error) {
	bodies, err := s.queryBodies(ctx, fmt.Sprintf("SELECT body FROM %s ORDER BY id", s.tables.hierarchies))
	if err != nil {
		return nil, err
	}
	roots := make([]*types.TaskInstance, 0, len(bodies))
	for _, body := range bodies {
		root, err := store.DecodeHierarchy(body)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// FindHierarchyByTask joins the task index with the hierarchies
func (s *Store) FindHierarchyByTask(ctx context.Context, taskID string) (*types.TaskInstance, error) {
	query := fmt.Sprintf(
		"SELECT h.body FROM %s t JOIN %s h ON h.id = t.root_id WHERE t.task_id = ?",
		s.tables.tasks, s.tables.hierarchies,
	)
	body, err := s.queryBody(ctx, query, taskID)
	if errors.Is(err, types.ErrKeyNotExists) {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, taskID)
	}
	if err != nil {
		return nil, err
	}
	return store.DecodeHierarchy(body)
}

// RemoveHierarchy .
func (s *Store) RemoveHierarchy(ctx context.Context, rootID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tables.hierarchies)), rootID)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if n == 0 {
			return types.NewDetailedErr(types.ErrHierarchyNotFound, rootID)
		}
		_, err = tx.ExecContext(ctx, s.rebind(fmt.Sprintf("DELETE FROM %s WHERE root_id = ?", s.tables.tasks)), rootID)
		return errors.WithStack(err)
	})
}
