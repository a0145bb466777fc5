package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTaskStatus(t *testing.T) {
	st, err := ParseTaskStatus("COMPLETED")
	assert.NoError(t, err)
	assert.Equal(t, TaskCompleted, st)

	_, err = ParseTaskStatus("completed")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSpecAttribute(t *testing.T) {
	spec := &TaskSpec{ID: "R", Attributes: []AttributeDefinition{{Name: "date", TaskArgument: true}}}
	assert.True(t, spec.Attribute("date").TaskArgument)
	assert.Equal(t, AttributeDefinition{Name: "other"}, spec.Attribute("other"))

	assert.True(t, spec.Same(&TaskSpec{ID: "R"}))
	assert.False(t, spec.Same(nil))
	var none *TaskSpec
	assert.True(t, none.Same(nil))
}

func TestInstanceClone(t *testing.T) {
	sub := &TaskInstance{ID: "A-2016"}
	inst := &TaskInstance{
		ID:         "R-2016",
		Attributes: []TaskAttribute{{Definition: AttributeDefinition{Name: "date"}, Value: "2016"}},
		SubTasks:   []*TaskInstance{sub},
	}
	attr, ok := inst.Attribute("date")
	assert.True(t, ok)
	assert.Equal(t, "2016", attr.Value)
	_, ok = inst.Attribute("nope")
	assert.False(t, ok)

	c := inst.Clone()
	c.SubTasks[0] = &TaskInstance{ID: "B-2016"}
	assert.Equal(t, "A-2016", inst.SubTasks[0].ID)

	assert.True(t, TaskAction{}.IsNone())
	assert.False(t, RouteAction("A_SERVICE").IsNone())
}
