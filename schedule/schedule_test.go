package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sync.Mutex
	events []*types.Event
}

func (r *recorder) emit(_ context.Context, ev *types.Event) error {
	r.Lock()
	defer r.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count() int {
	r.Lock()
	defer r.Unlock()
	return len(r.events)
}

func TestCrontab(t *testing.T) {
	crontab, err := Crontab(types.ScheduleConfig{Cron: "0 5 * * *"})
	require.NoError(t, err)
	assert.Equal(t, "0 5 * * *", crontab)

	crontab, err = Crontab(types.ScheduleConfig{Cron: "0 5 * * *", TimeZone: "Europe/London"})
	require.NoError(t, err)
	assert.Equal(t, "CRON_TZ=Europe/London 0 5 * * *", crontab)

	_, err = Crontab(types.ScheduleConfig{Cron: "0 5 * * *", TimeZone: "Nowhere/Land"})
	assert.True(t, errors.Is(err, types.ErrInvalidCron))
}

func TestAddInvalidCron(t *testing.T) {
	r := &recorder{}
	s, err := New(r.emit)
	require.NoError(t, err)
	defer s.Shutdown()

	err = s.Add(context.Background(), types.ScheduleConfig{ID: "bad", Cron: "not a cron"})
	assert.True(t, errors.Is(err, types.ErrInvalidCron))

	_, err = s.NextRun("bad")
	assert.True(t, errors.Is(err, types.ErrKeyNotExists))
}

func TestAddReplaceRemove(t *testing.T) {
	ctx := context.Background()
	r := &recorder{}
	s, err := New(r.emit)
	require.NoError(t, err)
	s.Start()
	defer s.Shutdown()

	require.NoError(t, s.Add(ctx, types.ScheduleConfig{ID: "daily", Cron: "0 5 * * *"}))
	require.NoError(t, s.Add(ctx, types.ScheduleConfig{ID: "daily", Cron: "0 6 * * *"}))
	next, err := s.NextRun("daily")
	require.NoError(t, err)
	assert.Equal(t, 6, next.Hour())

	require.NoError(t, s.Remove("daily"))
	assert.True(t, errors.Is(s.Remove("daily"), types.ErrKeyNotExists))
}

func TestFire(t *testing.T) {
	r := &recorder{}
	s, err := New(r.emit)
	require.NoError(t, err)

	// no event type, nothing emitted
	require.NoError(t, s.fire(context.Background(), types.ScheduleConfig{ID: "noop"}))
	assert.Equal(t, 0, r.count())

	config := types.ScheduleConfig{ID: "eod", EventType: "EOD", Payload: map[string]any{"region": "UK"}}
	require.NoError(t, s.fire(context.Background(), config))
	require.Equal(t, 1, r.count())
	ev := r.events[0]
	assert.Equal(t, "EOD", ev.Type)
	assert.Contains(t, ev.ID, "eod-")
	assert.Equal(t, "UK", ev.Payload["region"])
	assert.Equal(t, "eod", ev.Payload["scheduleId"])
	assert.NotEmpty(t, ev.Payload["scheduledAt"])
	// config payload untouched
	assert.Len(t, config.Payload, 1)
}

func TestScheduleEmits(t *testing.T) {
	r := &recorder{}
	s, err := New(r.emit)
	require.NoError(t, err)
	require.NoError(t, s.Add(context.Background(), types.ScheduleConfig{
		ID:          "tick",
		Cron:        "* * * * * *",
		WithSeconds: true,
		EventType:   "TICK",
	}))
	s.Start()
	defer s.Shutdown()

	assert.Eventually(t, func() bool { return r.count() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestEvery(t *testing.T) {
	s, err := New((&recorder{}).emit)
	require.NoError(t, err)

	var runs atomic.Int32
	purge := func(ctx context.Context) error {
		assert.NotNil(t, ctx.Value(types.TracingID))
		runs.Add(1)
		return nil
	}
	require.NoError(t, s.Every(context.Background(), "purge", 50*time.Millisecond, purge))
	// replaced, not doubled
	require.NoError(t, s.Every(context.Background(), "purge", 50*time.Millisecond, purge))
	assert.Len(t, s.jobs, 1)
	_, err = s.NextRun("purge")
	assert.NoError(t, err)
	assert.True(t, errors.Is(s.Every(context.Background(), "bad", 0, purge), types.ErrInvalidCron))

	s.Start()
	defer s.Shutdown()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
}
