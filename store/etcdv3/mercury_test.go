package etcdv3

import (
	"context"
	"testing"
	"time"

	"github.com/flabs/taskmanager/task"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func NewMercury(t *testing.T) *Mercury {
	config := types.Config{}
	config.LockTimeout = 10 * time.Second
	config.GlobalTimeout = 30 * time.Second
	config.Etcd = types.EtcdConfig{
		Machines:   []string{"127.0.0.1:2379"},
		Prefix:     "/taskmanager-test",
		LockPrefix: "/taskmanager-test-lock",
	}

	m, err := New(config, t)
	require.NoError(t, err)
	return m
}

func TestTaskSpecs(t *testing.T) {
	m := NewMercury(t)
	ctx := context.Background()
	t1 := task.Define("T1", task.WithPreConditions("E1"), task.WithAttributes(task.Attr("region", task.TaskArgument())))
	t0 := task.Define("T0", task.WithSubTasks(t1))

	assert.Error(t, m.AddTaskSpecs(ctx, nil))
	require.NoError(t, m.AddTaskSpecs(ctx, t0, task.Define("A0")))

	spec, err := m.GetTaskSpec(ctx, "T0")
	require.NoError(t, err)
	assert.Equal(t, t0, spec)

	_, err = m.GetTaskSpec(ctx, "T1")
	assert.True(t, errors.Is(err, types.ErrTaskSpecNotFound))

	specs, err := m.GetAllTaskSpecs(ctx)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "A0", specs[0].ID)

	require.NoError(t, m.RemoveTaskSpec(ctx, "A0"))
	assert.True(t, errors.Is(m.RemoveTaskSpec(ctx, "A0"), types.ErrTaskSpecNotFound))
}

func TestHierarchies(t *testing.T) {
	m := NewMercury(t)
	ctx := context.Background()
	t1 := task.Define("T1", task.WithPreConditions("E1"), task.WithAttributes(task.Attr("region", task.TaskArgument())))
	t0 := task.Define("T0", task.WithSubTasks(t1))
	attrs := map[string]string{"region": "eu"}
	root := task.NewHierarchy(types.TaskSpecMatch{Root: t0, Matched: []*types.TaskSpec{t1}}, attrs, []string{"E1"})

	require.NoError(t, m.SaveHierarchies(ctx, root))

	h, err := m.FindHierarchyByTask(ctx, "T1-eu")
	require.NoError(t, err)
	assert.Equal(t, "T0", h.ID)
	assert.Equal(t, "eu", h.SubTasks[0].Attributes[0].Value)

	_, err = m.GetHierarchy(ctx, "T1-eu")
	assert.True(t, errors.Is(err, types.ErrHierarchyNotFound))

	roots, err := m.GetAllHierarchies(ctx)
	require.NoError(t, err)
	assert.Len(t, roots, 1)

	require.NoError(t, m.RemoveHierarchy(ctx, "T0"))
	_, err = m.FindHierarchyByTask(ctx, "T1-eu")
	assert.True(t, errors.Is(err, types.ErrHierarchyNotFound))
}

func TestCreateLock(t *testing.T) {
	m := NewMercury(t)
	l, err := m.CreateLock("T0", time.Second)
	require.NoError(t, err)
	ctx, err := l.Lock(context.Background())
	require.NoError(t, err)
	assert.NoError(t, l.Unlock(ctx))
}
