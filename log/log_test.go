package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	r := []map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		r = append(r, m)
	}
	return r
}

func TestSetupLog(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, SetupLog(ctx, &types.ServerLogConfig{Level: "nope"}, ""))
	assert.NoError(t, SetupLog(ctx, &types.ServerLogConfig{Level: "INFO", UseJSON: true}, ""))
}

func TestFields(t *testing.T) {
	buf := &bytes.Buffer{}
	setLogger(buf, zerolog.InfoLevel)
	ctx := context.WithValue(context.Background(), types.TracingID, "abcdefgh")

	WithFunc("test.Fields").WithField("address", "orchestrate.event").Infof(ctx, "delivered %d", 1)
	WithFunc("test.Fields").Debug(ctx, "hidden")
	Warn(context.Background(), "plain")
	Error(ctx, nil, "ignored")
	WithField("task", "A-2016").Error(ctx, errors.New("boom"), "failed")
	WithFunc("test.Fields").
		WithTask(&types.TaskInstance{ID: "R-2016", Status: types.TaskFailed}).
		WithEvent(&types.Event{ID: "ev1", Type: "EV-1"}).
		WithTask(nil).
		Info(ctx, "evaluated")

	out := lines(t, buf)
	require.Len(t, out, 4)
	assert.Equal(t, "info", out[0]["level"])
	assert.Equal(t, "delivered 1", out[0]["message"])
	assert.Equal(t, "test.Fields", out[0]["func"])
	assert.Equal(t, "orchestrate.event", out[0]["address"])
	assert.Equal(t, "abcdefgh", out[0]["tracing"])

	assert.Equal(t, "warn", out[1]["level"])
	assert.NotContains(t, out[1], "tracing")

	assert.Equal(t, "error", out[2]["level"])
	assert.Equal(t, "boom", out[2]["error"])
	assert.Equal(t, "A-2016", out[2]["task"])

	assert.Equal(t, "R-2016", out[3]["task"])
	assert.Equal(t, "FAILED", out[3]["status"])
	assert.Equal(t, "ev1", out[3]["event"])
	assert.Equal(t, "EV-1", out[3]["type"])
}
