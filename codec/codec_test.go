package codec

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONWireFormat(t *testing.T) {
	c := NewJSON[*types.Event](Event)
	ev := &types.Event{ID: "db-big-uk-trades", Type: "db-big-uk-trades", Payload: map[string]any{"region": "uk"}}
	b, err := c.Encode(ev)
	require.NoError(t, err)
	size := binary.BigEndian.Uint32(b)
	assert.EqualValues(t, len(b)-4, size)
	assert.Contains(t, string(b[4:]), `"type":"db-big-uk-trades"`)

	// trailing bytes after the document are ignored
	decoded, err := c.DecodeValue(append(b, 'x'))
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)

	_, err = c.Decode(b[:2])
	assert.True(t, errors.Is(err, types.ErrBadPayload))
	_, err = c.Decode(b[:len(b)-1])
	assert.True(t, errors.Is(err, types.ErrBadPayload))
	_, err = c.Encode("not an event")
	assert.True(t, errors.Is(err, types.ErrBadPayload))
}

func TestMsgpackTaskInstance(t *testing.T) {
	c := NewMsgpack[*types.TaskInstance](MsgpackName(TaskInstance))
	now := time.Now().UTC().Truncate(time.Second)
	spec := &types.TaskSpec{ID: "T1", Action: types.RouteAction("ETL_SERVICE")}
	inst := &types.TaskInstance{ID: "T1-uk", Status: types.TaskScheduled, Spec: spec, ScheduleTime: &now,
		Attributes: []types.TaskAttribute{{Definition: types.AttributeDefinition{Name: "region", TaskArgument: true}, Value: "uk"}}}
	b, err := c.Encode(inst)
	require.NoError(t, err)
	v, err := c.Decode(b)
	require.NoError(t, err)
	decoded := v.(*types.TaskInstance)
	assert.Equal(t, inst.ID, decoded.ID)
	assert.Equal(t, inst.Status, decoded.Status)
	assert.Equal(t, "ETL_SERVICE", decoded.Spec.Action.Route)
	assert.True(t, now.Equal(*decoded.ScheduleTime))
	assert.Equal(t, inst.Attributes, decoded.Attributes)

	_, err = c.Decode([]byte{0xc1})
	assert.True(t, errors.Is(err, types.ErrBadPayload))
}

func TestRegistry(t *testing.T) {
	r := Defaults()
	c, err := r.Get(SpecList)
	require.NoError(t, err)
	assert.Equal(t, SpecList, c.Name())

	_, err = r.Get("unknown")
	assert.True(t, errors.Is(err, types.ErrUnknownCodec))

	c, err = r.Lookup(&types.Event{})
	require.NoError(t, err)
	assert.Equal(t, Event, c.Name())

	c, err = r.Lookup("closing")
	require.NoError(t, err)
	assert.Equal(t, String, c.Name())

	_, err = r.Lookup(42)
	assert.True(t, errors.Is(err, types.ErrUnknownCodec))
}
