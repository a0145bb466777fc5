package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flabs/taskmanager/bus"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	queueKey       = "%squeue.%s"   // point to point messages of an address
	publishChannel = "%spublish.%s" // published messages of an address
	nodeChannel    = "%snode.%s"    // replies to a node

	pollTimeout    = time.Second
	forwardRetries = 3
)

// Bridge links buses through redis.
// Sends go through a list per address so that exactly one node takes them,
// publishes and replies go through pub/sub channels.
type Bridge struct {
	sync.Mutex
	cli    *redis.Client
	prefix string
	queues map[string]struct{}
	ready  chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New .
func New(cli *redis.Client, prefix string) *Bridge {
	return &Bridge{
		cli:    cli,
		prefix: prefix,
		queues: map[string]struct{}{},
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the bridge subscribed its channels
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Listen .
func (b *Bridge) Listen(_ context.Context, address string) error {
	if address == "" {
		return types.ErrEmptyAddress
	}
	b.Lock()
	defer b.Unlock()
	b.queues[b.key(queueKey, address)] = struct{}{}
	return nil
}

// Forward .
func (b *Bridge) Forward(ctx context.Context, env *bus.Envelope) error {
	data, err := msgpack.Marshal(env)
	if err != nil {
		return errors.WithStack(err)
	}
	var push func() error
	switch env.Kind {
	case bus.KindSend:
		push = func() error { return b.cli.LPush(ctx, b.key(queueKey, env.Address), data).Err() }
	case bus.KindPublish:
		push = func() error { return b.cli.Publish(ctx, b.key(publishChannel, env.Address), data).Err() }
	case bus.KindReply:
		push = func() error { return b.cli.Publish(ctx, b.key(nodeChannel, env.Target), data).Err() }
	default:
		return types.NewDetailedErr(types.ErrBadPayload, env.Kind)
	}
	return errors.WithStack(utils.Retry(ctx, forwardRetries, push))
}

// Run .
func (b *Bridge) Run(ctx context.Context, node string, deliver func(context.Context, *bus.Envelope)) error {
	logger := log.WithFunc("bus.redis.Run").WithField("node", node)
	ctx, cancel := context.WithCancel(ctx)
	b.Lock()
	b.cancel = cancel
	b.Unlock()
	defer cancel()

	ps := b.cli.PSubscribe(ctx, b.key(publishChannel, "*"))
	defer ps.Close()
	if err := ps.Subscribe(ctx, b.key(nodeChannel, node)); err != nil {
		return err
	}
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	close(b.ready)
	logger.Infof(ctx, "bridge joined with prefix %s", b.prefix)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.poll(ctx, deliver)
	}()
	defer b.wg.Wait()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := decode([]byte(msg.Payload))
			if err != nil {
				logger.Error(ctx, err, "drop message")
				continue
			}
			deliver(ctx, env)
		}
	}
}

// Close stops Run
func (b *Bridge) Close() error {
	b.Lock()
	cancel := b.cancel
	b.Unlock()
	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
	return nil
}

func (b *Bridge) poll(ctx context.Context, deliver func(context.Context, *bus.Envelope)) {
	logger := log.WithFunc("bus.redis.poll")
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for ctx.Err() == nil {
		keys := b.queueKeys()
		if len(keys) == 0 {
			wait(ctx, pollTimeout)
			continue
		}
		res, err := b.cli.BRPop(ctx, pollTimeout, keys...).Result()
		switch {
		case errors.Is(err, redis.Nil):
			bo.Reset()
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			d := bo.NextBackOff()
			logger.Warnf(ctx, "poll failed %+v, retry in %s", err, d)
			wait(ctx, d)
		default:
			bo.Reset()
			env, err := decode([]byte(res[1]))
			if err != nil {
				logger.Error(ctx, err, "drop message")
				continue
			}
			deliver(ctx, env)
		}
	}
}

func (b *Bridge) queueKeys() []string {
	b.Lock()
	defer b.Unlock()
	keys := make([]string, 0, len(b.queues))
	for key := range b.queues {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (b *Bridge) key(pattern, name string) string {
	return fmt.Sprintf(pattern, b.prefix, name)
}

func decode(data []byte) (*bus.Envelope, error) {
	env := &bus.Envelope{}
	if err := msgpack.Unmarshal(data, env); err != nil {
		return nil, errors.Wrap(types.ErrBadPayload, err.Error())
	}
	return env, nil
}

func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
