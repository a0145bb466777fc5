package task

import (
	"testing"

	"github.com/flabs/taskmanager/types"

	"github.com/stretchr/testify/assert"
)

func TestDefine(t *testing.T) {
	t1 := Define("T1", WithRoute("ETL_SERVICE"), WithPreConditions("E1", "E2"))
	t0 := Define("T0",
		WithDescription("root"),
		WithSubTasks(t1, t1),
		WithAttributes(Attr("cobDate", TaskArgument(), Mandatory())),
	)
	assert.Equal(t, "root", t0.Description)
	assert.True(t, t0.Action.IsNone())
	assert.Len(t, t0.SubTasks, 1)
	assert.Equal(t, types.RouteAction("ETL_SERVICE"), t1.Action)
	assert.Equal(t, []types.DependencyDefinition{{Name: "E1"}, {Name: "E2"}}, t1.PreConditions)
	assert.Equal(t, types.AttributeDefinition{Name: "cobDate", TaskArgument: true, Mandatory: true}, t0.Attribute("cobDate"))
	assert.Equal(t, types.AttributeDefinition{Name: "region"}, t0.Attribute("region"))
}

func TestPath(t *testing.T) {
	t11 := Define("T11")
	t21 := Define("T21")
	t1 := Define("T1", WithSubTasks(t11))
	t2 := Define("T2", WithSubTasks(t21))
	t0 := Define("T0", WithSubTasks(t1, t2))

	assert.Equal(t, []*types.TaskSpec{t0, t2, t21}, Path(t0, t21))
	assert.Equal(t, []*types.TaskSpec{t0}, Path(t0, t0))
	assert.Empty(t, Path(t1, t21))

	paths := Paths(types.TaskSpecMatch{Root: t0, Matched: []*types.TaskSpec{t11, t2}})
	assert.Equal(t, [][]*types.TaskSpec{{t0, t1, t11}, {t0, t2}}, paths)
}

func TestDependsOn(t *testing.T) {
	t11 := Define("T11", WithPreConditions("E11"))
	t1 := Define("T1", WithSubTasks(t11), WithPreConditions("E1"))
	t2 := Define("T2", WithPreConditions("E1"))
	t0 := Define("T0", WithSubTasks(t1, t2))

	assert.False(t, HasDependency(t0, []string{"E1"}))
	assert.True(t, DependsOn(t0, []string{"E11"}))
	assert.True(t, HasDependency(t1, []string{"E1", "E2"}))
	assert.False(t, DependsOn(t2, []string{"E11"}))

	assert.Equal(t, []*types.TaskSpec{t1, t2}, CollectDependent(t0, []string{"E1"}))
	assert.Equal(t, []*types.TaskSpec{t1, t11, t2}, CollectDependent(t0, []string{"E1", "E11"}))
	assert.Empty(t, CollectDependent(t0, []string{"E3"}))
}

func TestSelectTaskArguments(t *testing.T) {
	spec := Define("T", WithAttributes(Attr("cobDate", TaskArgument()), Attr("region")))
	args := SelectTaskArguments(spec, map[string]string{"cobDate": "20160101", "region": "uk"})
	assert.Len(t, args, 1)
	assert.Equal(t, "cobDate", args[0].Definition.Name)
	assert.True(t, args[0].Definition.TaskArgument)
	assert.Equal(t, "20160101", args[0].Value)
}

func TestFindSpec(t *testing.T) {
	t11 := Define("T11")
	t0 := Define("T0", WithSubTasks(Define("T1", WithSubTasks(t11))))
	assert.Equal(t, t11, FindSpec(t0, "T11"))
	assert.Nil(t, FindSpec(t0, "T2"))
}
