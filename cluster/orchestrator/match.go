package orchestrator

import (
	"context"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/rules"
	"github.com/flabs/taskmanager/task"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

// MatchTaskHierarchy finds or creates the hierarchies waiting for ev, persists them
// and returns one process hierarchy action for each of them.
// It fails when no spec depends on ev or when nothing could be persisted.
func (o *Orchestrator) MatchTaskHierarchy(ctx context.Context, ev *types.Event) ([]types.OrchestrateTaskAction, error) {
	logger := log.WithFunc("orchestrator.MatchTaskHierarchy").WithEvent(ev)

	matches, err := o.repo.FindTaskSpecForDependency(ctx, ev.Type)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, types.NewDetailedErr(types.ErrNoTaskSpec, ev.Type)
	}

	attrs := task.FlattenPayload(ev.Payload)
	hierarchies, err := o.repo.MatchTaskInstanceHierarchies(ctx, matches, attrs)
	if err != nil {
		return nil, err
	}

	deps := []string{ev.Type}
	roots := []*types.TaskInstance{}
	for _, hm := range hierarchies {
		if filled := task.Fill(hm, attrs, deps); filled.Root != nil {
			roots = append(roots, filled.Root)
		}
	}
	if len(roots) == 0 {
		return nil, types.NewDetailedErr(types.ErrPersistHierarchies, ev.Type)
	}
	if err := o.repo.SaveInstances(ctx, roots...); err != nil {
		logger.Error(ctx, err, "save hierarchies failed")
		return nil, errors.Wrap(types.ErrPersistHierarchies, err.Error())
	}

	actions := make([]types.OrchestrateTaskAction, 0, len(roots))
	for _, root := range roots {
		actions = append(actions, rules.Orchestrate(root, ev))
	}
	logger.Debugf(ctx, "%d hierarchies matched", len(actions))
	return actions, nil
}

func rootSpecIDs(matches []types.TaskSpecMatch) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Root.ID)
	}
	return ids
}
