package task

import (
	"testing"

	"github.com/flabs/taskmanager/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var etlService = WithRoute("ETL_SERVICE")

func TestNewInstance(t *testing.T) {
	spec := Define("T1")
	inst := NewInstance(spec, nil, nil)
	assert.Equal(t, "T1", inst.Spec.ID)
	assert.Equal(t, "T1", inst.ID)
	assert.Equal(t, types.TaskPending, inst.Status)
}

func TestNewInstanceWithArgsIDGen(t *testing.T) {
	spec := Define("T2", WithAttributes(Attr("ID", TaskArgument()), Attr("region")))
	inst := NewInstance(spec, map[string]string{"ID": "HELLO", "region": "uk"}, nil)
	assert.Equal(t, "T2-HELLO", inst.ID)

	spec = Define("T3", WithAttributes(Attr("cobDate", TaskArgument()), Attr("region", TaskArgument())))
	inst = NewInstance(spec, map[string]string{"region": "uk"}, nil)
	assert.Equal(t, "T3--uk", inst.ID)
}

func TestPrecondition(t *testing.T) {
	spec := Define("T0", WithPreConditions("E1"))
	inst := NewInstanceWithID(spec, "t0Inst", nil, []string{"E1"})
	require.Len(t, inst.DependsOn, 1)
	assert.Equal(t, "E1", inst.DependsOn[0].Name)
	assert.True(t, inst.DependsOn[0].Completed)
}

func TestHierarchyPreconditions(t *testing.T) {
	t1 := Define("T1", WithPreConditions("E1"))
	t0 := Define("T0", WithSubTasks(t1), WithPreConditions("E0"))
	match := types.TaskSpecMatch{Root: t0, Matched: []*types.TaskSpec{t1}}
	hierarchy := NewHierarchy(match, nil, []string{"E1"})

	assert.Equal(t, t0, hierarchy.Spec)
	require.Len(t, hierarchy.SubTasks, 1)
	assert.Equal(t, t1, hierarchy.SubTasks[0].Spec)
	require.Len(t, hierarchy.DependsOn, 1)
	assert.Equal(t, types.TaskDependency{Name: "E0"}, hierarchy.DependsOn[0])
	require.Len(t, hierarchy.SubTasks[0].DependsOn, 1)
	assert.Equal(t, types.TaskDependency{Name: "E1", Completed: true}, hierarchy.SubTasks[0].DependsOn[0])
}

func TestTaskAttributes(t *testing.T) {
	spec := Define("T2", WithAttributes(Attr("cobDate")))
	inst := NewInstanceWithID(spec, "t2", map[string]string{"cobDate": "20160101"}, nil)
	require.Len(t, inst.Attributes, 1)
	assert.Equal(t, "20160101", inst.Attributes[0].Value)
}

func TestDependencies(t *testing.T) {
	t1 := Define("T1", etlService, WithAttributes(Attr("region", TaskArgument())))
	t0 := Define("T0", WithSubTasks(t1), WithAttributes(Attr("cobDate", TaskArgument())))

	inst := &types.TaskInstance{ID: "T0-inst", Spec: t0, DependsOn: []types.TaskDependency{{Name: "EV_PARTY", Completed: true}}}
	assert.True(t, AllDependenciesMet(inst))
	assert.True(t, DependencyMet(inst, "EV_PARTY"))
	assert.True(t, DependencyMet(inst, "EV_UNKNOWN"))

	inst = &types.TaskInstance{ID: "T0-inst", Spec: t0, DependsOn: []types.TaskDependency{
		{Name: "EV_ACCOUNT", Completed: true},
		{Name: "EV_ACCOUNT_BAL"},
	}}
	assert.False(t, AllDependenciesMet(inst))
	assert.False(t, DependencyMet(inst, "EV_ACCOUNT_BAL"))
}

// T0 instance exists and T1 gets attached to it
func TestAddPath(t *testing.T) {
	t1 := Define("T1", etlService, WithAttributes(Attr("region", TaskArgument())))
	t0 := Define("T0", WithSubTasks(t1), WithAttributes(Attr("cobDate", TaskArgument())))

	t0Inst := NewInstanceWithID(t0, "t0-inst", map[string]string{"cobDate": "20160101"}, nil)
	n := Add(t0Inst, map[string]string{"region": "uk"}, []*types.TaskSpec{t0, t1}, nil)
	assert.Equal(t, t0, n.Spec)
	require.Len(t, n.SubTasks, 1)
	assert.Equal(t, t1, n.SubTasks[0].Spec)
	assert.Equal(t, "T1-uk", n.SubTasks[0].ID)
	assert.Equal(t, types.TaskPending, n.SubTasks[0].Status)
	assert.Empty(t, n.SubTasks[0].SubTasks)
	// original untouched
	assert.Empty(t, t0Inst.SubTasks)
}

// T0 and T1 instances exist, T2 is appended next to T1
func TestAddSiblingPath(t *testing.T) {
	t1 := Define("T1", etlService, WithAttributes(Attr("region", TaskArgument())))
	t2 := Define("T2", etlService)
	t0 := Define("T0", WithSubTasks(t1, t2), WithAttributes(Attr("cobDate", TaskArgument())))

	t0Inst := NewInstanceWithID(t0, "t0-inst", map[string]string{"cobDate": "20160101"}, nil)
	n1 := Add(t0Inst, map[string]string{"region": "uk"}, []*types.TaskSpec{t0, t1}, nil)
	require.Len(t, n1.SubTasks, 1)
	n2 := Add(n1, map[string]string{"cobDate": "20160101"}, []*types.TaskSpec{t0, t2}, nil)
	require.Len(t, n2.SubTasks, 2)
	assert.Equal(t, t1, n2.SubTasks[0].Spec)
	assert.Equal(t, t2, n2.SubTasks[1].Spec)
}

// T0 instance exists, adding T11 creates T1 on the way
func TestAddDeepPath(t *testing.T) {
	t11 := Define("T11")
	t1 := Define("T1", etlService, WithSubTasks(t11), WithAttributes(Attr("region", TaskArgument())))
	t0 := Define("T0", WithSubTasks(t1), WithAttributes(Attr("cobDate", TaskArgument())))

	t0Inst := NewInstanceWithID(t0, "t0-inst", map[string]string{"cobDate": "20160101"}, nil)
	n := Add(t0Inst, map[string]string{"region": "uk"}, []*types.TaskSpec{t0, t1, t11}, nil)
	require.Len(t, n.SubTasks, 1)
	t1Inst := n.SubTasks[0]
	assert.Equal(t, t1, t1Inst.Spec)
	require.Len(t, t1Inst.SubTasks, 1)
	assert.Equal(t, t11, t1Inst.SubTasks[0].Spec)
	assert.Empty(t, t1Inst.SubTasks[0].SubTasks)
}

// T0 -> T1 -> T11 exists, filling T0 T2 T21 adds the second branch
func TestAddSecondBranch(t *testing.T) {
	t11 := Define("T11", WithAttributes(Attr("region"), Attr("cobDate", TaskArgument())))
	t21 := Define("T21", WithAttributes(Attr("cobDate", TaskArgument())))
	t1 := Define("T1", etlService, WithSubTasks(t11))
	t2 := Define("T2", etlService, WithSubTasks(t21))
	t0 := Define("T0", WithSubTasks(t1, t2), WithAttributes(Attr("cobDate", TaskArgument())))

	t0Inst := NewInstanceWithID(t0, "T0-inst", map[string]string{"cobDate": "20160101"}, nil)
	n1 := Add(t0Inst, map[string]string{"cobDate": "20160101", "region": "uk"}, []*types.TaskSpec{t0, t1, t11}, nil)
	n2 := Add(n1, map[string]string{"cobDate": "20160101"}, []*types.TaskSpec{t0, t2, t21}, nil)

	require.Len(t, n2.SubTasks, 2)
	t1Inst, t2Inst := n2.SubTasks[0], n2.SubTasks[1]
	assert.Equal(t, t1, t1Inst.Spec)
	assert.Equal(t, t2, t2Inst.Spec)
	require.Len(t, t1Inst.SubTasks, 1)
	require.Len(t, t2Inst.SubTasks, 1)
	assert.Equal(t, t11, t1Inst.SubTasks[0].Spec)
	assert.Equal(t, t21, t2Inst.SubTasks[0].Spec)
	assert.Equal(t, []types.TaskAttribute{
		{Definition: Attr("region"), Value: "uk"},
		{Definition: Attr("cobDate", TaskArgument()), Value: "20160101"},
	}, t1Inst.SubTasks[0].Attributes)
}

// a completed node is never replaced when its path is filled again
func TestAddKeepsCompleted(t *testing.T) {
	attrs := map[string]string{"cobDate": "20160101"}
	t01 := Define("T01", WithAttributes(Attr("cobDate")))
	t00 := Define("T00", WithSubTasks(t01), WithAttributes(Attr("cobDate")))
	root := NewHierarchy(types.TaskSpecMatch{Root: t00, Matched: []*types.TaskSpec{t01}}, attrs, nil)
	assert.Empty(t, root.SubTasks)

	h1 := Add(root, attrs, []*types.TaskSpec{t00, t01}, nil)
	require.Len(t, h1.SubTasks, 1)
	completed := h1.SubTasks[0].Clone()
	completed.Status = types.TaskCompleted
	h2 := UpdateSub(h1, completed)
	h3 := Add(h2, attrs, []*types.TaskSpec{t00, t01}, nil)
	require.Len(t, h3.SubTasks, 1)
	assert.Equal(t, types.TaskCompleted, h3.SubTasks[0].Status)

	// path not anchored at the node
	assert.Equal(t, h3, Add(h3, attrs, []*types.TaskSpec{t01}, nil))
	assert.Equal(t, h3, Add(h3, attrs, []*types.TaskSpec{t01, t00}, nil))
}

func TestFill(t *testing.T) {
	t1 := Define("T1", WithPreConditions("E1"))
	t2 := Define("T2", WithPreConditions("E2"))
	t0 := Define("T0", WithSubTasks(t1, t2))

	hm := Fill(types.HierarchyMatch{SpecMatch: types.TaskSpecMatch{Root: t0, Matched: []*types.TaskSpec{t1}}}, nil, []string{"E1"})
	require.NotNil(t, hm.Root)
	require.Len(t, hm.Root.SubTasks, 1)
	assert.False(t, IsHierarchyComplete(hm.Root))

	hm = Fill(types.HierarchyMatch{SpecMatch: types.TaskSpecMatch{Root: t0, Matched: []*types.TaskSpec{t2}}, Root: hm.Root}, nil, []string{"E2"})
	require.Len(t, hm.Root.SubTasks, 2)
	assert.True(t, IsHierarchyComplete(hm.Root))
	assert.True(t, hm.Root.SubTasks[1].DependsOn[0].Completed)
}

func TestContainsTask(t *testing.T) {
	t2 := Define("T2")
	t1 := Define("T1", WithSubTasks(t2))
	t1Inst := NewInstanceWithID(t1, "t1-inst", nil, nil)
	t1Inst.SubTasks = []*types.TaskInstance{NewInstanceWithID(t2, "t2-inst", nil, nil)}
	assert.True(t, ContainsTask(t1Inst, "t2-inst"))
	assert.True(t, ContainsTask(t1Inst, "t1-inst"))
	assert.False(t, ContainsTask(t1Inst, "t3-inst"))
}

func TestMatchAttributes(t *testing.T) {
	t1 := Define("T1", WithAttributes(Attr("cobDate", TaskArgument())))
	inst := NewInstance(t1, map[string]string{"cobDate": "20160101"}, nil)
	assert.True(t, MatchAttributes(inst, []types.TaskAttribute{{Definition: Attr("cobDate", TaskArgument()), Value: "20160101"}}))
	assert.False(t, MatchAttributes(inst, []types.TaskAttribute{{Definition: Attr("cobDate", TaskArgument()), Value: "20160102"}}))
	assert.False(t, MatchAttributes(inst, []types.TaskAttribute{{Definition: Attr("region"), Value: "uk"}}))
	assert.True(t, MatchAttributes(inst, nil))
}

func TestFindInHierarchy(t *testing.T) {
	t6 := Define("T6", WithPreConditions("E6"), WithAttributes(Attr("cobDate", TaskArgument())))
	t5 := Define("T5", WithSubTasks(t6))
	t0 := Define("T0", WithSubTasks(t5), WithAttributes(Attr("cobDate", TaskArgument())))
	hierarchy := NewHierarchy(types.TaskSpecMatch{Root: t0, Matched: []*types.TaskSpec{t6}}, map[string]string{"cobDate": "20160101"}, []string{"E6"})
	found := FindBySpecID(hierarchy, "T6")
	require.NotNil(t, found)
	assert.Equal(t, "T6-20160101", found.ID)
	assert.Nil(t, FindBySpecID(hierarchy, "T7"))

	single := Define("T0")
	h := NewHierarchy(types.TaskSpecMatch{Root: single, Matched: []*types.TaskSpec{single}}, nil, nil)
	assert.Equal(t, single, FindBySpecID(h, "T0").Spec)
}

func TestUpdateSub(t *testing.T) {
	t1 := Define("T1", WithPreConditions("E1"))
	t2 := Define("T2", WithPreConditions("E2"))
	t0 := Define("T0", WithSubTasks(t1, t2))
	root := NewHierarchy(types.TaskSpecMatch{Root: t0, Matched: []*types.TaskSpec{t1, t2}}, nil, []string{"E1", "E2"})
	require.Len(t, root.SubTasks, 2)

	started := root.SubTasks[1].Clone()
	started.Status = types.TaskStarted
	updated := UpdateSub(root, started)
	assert.Equal(t, types.TaskStarted, updated.SubTasks[1].Status)
	assert.Equal(t, types.TaskPending, root.SubTasks[1].Status)
	assert.Equal(t, root.SubTasks[0], updated.SubTasks[0])
}

func TestChildrenStates(t *testing.T) {
	t1 := Define("T1")
	t2 := Define("T2")
	t0 := Define("T0", WithSubTasks(t1, t2))
	i1 := &types.TaskInstance{ID: "i1", Spec: t1, Status: types.TaskCompleted}
	i2 := &types.TaskInstance{ID: "i2", Spec: t2, Status: types.TaskPending}
	root := &types.TaskInstance{ID: "i0", Spec: t0, Status: types.TaskPending, SubTasks: []*types.TaskInstance{i1}}

	assert.False(t, IsHierarchyComplete(root))
	assert.False(t, ChildrenCompleted(root))
	root.SubTasks = append(root.SubTasks, i2)
	assert.True(t, IsHierarchyComplete(root))
	assert.False(t, ChildrenCompleted(root))
	assert.False(t, ChildrenFailed(root))
	i2.Status = types.TaskFailed
	assert.True(t, ChildrenFailed(root))
	i2.Status = types.TaskCompleted
	assert.True(t, ChildrenCompleted(root))
}
