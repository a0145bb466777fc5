package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/utils"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, opts ...Option) *Bus {
	pool, err := utils.NewBlockingPool(10)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	b := New(pool, append([]Option{WithRequestTimeout(time.Second)}, opts...)...)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSendRoundRobin(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	got := make(chan string, 4)
	for _, name := range []string{"a", "b"} {
		name := name
		_, err := b.Consumer(ctx, "worker", func(_ context.Context, msg *Message) {
			got <- name + ":" + msg.Body.(string)
		})
		require.NoError(t, err)
	}
	for _, body := range []string{"1", "2", "3", "4"} {
		require.NoError(t, b.Send(ctx, "worker", body))
	}
	received := map[string]int{}
	for i := 0; i < 4; i++ {
		select {
		case r := <-got:
			received[r[:1]]++
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	assert.Equal(t, map[string]int{"a": 2, "b": 2}, received)
}

func TestSendWithoutConsumer(t *testing.T) {
	b := newTestBus(t)
	err := b.Send(context.Background(), "nobody", "hi")
	assert.True(t, errors.Is(err, types.ErrNoConsumer))
	err = b.Send(context.Background(), "", "hi")
	assert.True(t, errors.Is(err, types.ErrEmptyAddress))
}

func TestPublishAndObserve(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	wg := sync.WaitGroup{}
	wg.Add(5)
	for i := 0; i < 2; i++ {
		_, err := b.Consumer(ctx, "orchestrate.unroutable", func(context.Context, *Message) { wg.Done() })
		require.NoError(t, err)
	}
	observer, err := b.Observe(ctx, "orchestrate.unroutable", func(_ context.Context, msg *Message) {
		assert.Equal(t, "v", msg.Headers["k"])
		wg.Done()
	})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, "orchestrate.unroutable", &types.Event{Type: "E1"}, WithHeader("k", "v")))
	// observers see sends too
	require.NoError(t, b.Send(ctx, "orchestrate.unroutable", &types.Event{Type: "E2"}, WithHeader("k", "v")))
	wg.Wait()

	observer.Unregister()
	assert.Equal(t, "orchestrate.unroutable", observer.Address())
}

func TestRequestReply(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)

	_, err := b.Consumer(ctx, "orchestrate.task.close", func(ctx context.Context, msg *Message) {
		id := msg.Body.(string)
		if id == "unknown" {
			_ = msg.Fail(ctx, 404, "task not found")
			return
		}
		_ = msg.Reply(ctx, "success - "+id)
	})
	require.NoError(t, err)

	reply, err := RequestBody[string](ctx, b, "orchestrate.task.close", "T1-uk")
	require.NoError(t, err)
	assert.Equal(t, "success - T1-uk", reply)

	_, err = b.Request(ctx, "orchestrate.task.close", "unknown")
	var rerr *types.ReplyError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 404, rerr.Code)

	_, err = RequestBody[int](ctx, b, "orchestrate.task.close", "T1-uk")
	assert.True(t, errors.Is(err, types.ErrBadReply))
}

func TestRequestTimeout(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)
	_, err := b.Consumer(ctx, "silent", func(context.Context, *Message) {})
	require.NoError(t, err)
	_, err = b.Request(ctx, "silent", "hello", WithTimeout(50*time.Millisecond))
	assert.True(t, errors.Is(err, types.ErrReplyTimeout))
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()
	b := newTestBus(t)
	c, err := b.Consumer(ctx, "worker", func(context.Context, *Message) {})
	require.NoError(t, err)
	c.Unregister()
	assert.True(t, errors.Is(b.Send(ctx, "worker", "x"), types.ErrNoConsumer))

	require.NoError(t, b.Close())
	_, err = b.Consumer(ctx, "worker", func(context.Context, *Message) {})
	assert.True(t, errors.Is(err, types.ErrBusClosed))
}

func TestSendFromHandlerBurst(t *testing.T) {
	ctx := context.Background()
	pool, err := utils.NewBlockingPool(4)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	b := New(pool)
	t.Cleanup(func() { _ = b.Close() })

	var routed atomic.Int32
	_, err = b.Consumer(ctx, "ETL", func(context.Context, *Message) { routed.Add(1) })
	require.NoError(t, err)
	_, err = b.Consumer(ctx, "orchestrate.event", func(ctx context.Context, msg *Message) {
		assert.True(t, inHandler(ctx))
		// keep every worker busy before forwarding
		time.Sleep(50 * time.Millisecond)
		assert.NoError(t, b.Send(ctx, "ETL", msg.Body))
	})
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Send(ctx, "orchestrate.event", &types.Event{ID: utils.RandomString(6)}))
		}()
	}
	wg.Wait()
	assert.Eventually(t, func() bool { return routed.Load() == 8 }, 5*time.Second, 10*time.Millisecond)
	assert.False(t, inHandler(ctx))
}
