package bus

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/flabs/taskmanager/codec"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/metrics"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/utils"

	"github.com/alphadose/haxmap"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

const (
	replyPrefix    = "__reply."
	defaultTimeout = 30 * time.Second
)

// Consumer is a registered handler
type Consumer struct {
	address  string
	handler  Handler
	observer bool
	bus      *Bus
}

// Address .
func (c *Consumer) Address() string {
	return c.address
}

// Unregister stops the consumer
func (c *Consumer) Unregister() {
	c.bus.unregister(c)
}

// Bus is an address based message bus.
// Send goes to one consumer of an address in turn, Publish to all of them.
// Observers see every message of their address without taking part in the turns.
type Bus struct {
	sync.RWMutex
	node      string
	consumers map[string][]*Consumer
	next      map[string]int
	replies   *haxmap.Map[string, chan *Message]
	pool      *ants.PoolWithFunc
	codecs    *codec.Registry
	bridge    Bridge
	timeout   time.Duration
	closed    bool
}

// Option .
type Option func(*Bus)

// WithBridge joins the bus to a cluster
func WithBridge(bridge Bridge) Option {
	return func(b *Bus) { b.bridge = bridge }
}

// WithNode names this node, a random one is used otherwise
func WithNode(node string) Option {
	return func(b *Bus) {
		if node != "" {
			b.node = node
		}
	}
}

// WithRequestTimeout .
func WithRequestTimeout(timeout time.Duration) Option {
	return func(b *Bus) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// WithCodecs .
func WithCodecs(codecs *codec.Registry) Option {
	return func(b *Bus) { b.codecs = codecs }
}

// New creates a bus running handlers on pool
func New(pool *ants.PoolWithFunc, opts ...Option) *Bus {
	b := &Bus{
		node:      uuid.NewString(),
		consumers: map[string][]*Consumer{},
		next:      map[string]int{},
		replies:   haxmap.New[string, chan *Message](),
		pool:      pool,
		codecs:    codec.Defaults(),
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Node .
func (b *Bus) Node() string {
	return b.node
}

// Codecs .
func (b *Bus) Codecs() *codec.Registry {
	return b.codecs
}

// Start runs the bridge if any, it returns when ctx is done
func (b *Bus) Start(ctx context.Context) error {
	if b.bridge == nil {
		<-ctx.Done()
		return nil
	}
	return b.bridge.Run(ctx, b.node, b.deliverRemote)
}

// Consumer registers a handler on address
func (b *Bus) Consumer(ctx context.Context, address string, handler Handler) (*Consumer, error) {
	return b.register(ctx, address, handler, false)
}

// Observe registers a handler receiving a copy of every message of address
func (b *Bus) Observe(ctx context.Context, address string, handler Handler) (*Consumer, error) {
	return b.register(ctx, address, handler, true)
}

func (b *Bus) register(ctx context.Context, address string, handler Handler, observer bool) (*Consumer, error) {
	if address == "" {
		return nil, types.ErrEmptyAddress
	}
	b.Lock()
	if b.closed {
		b.Unlock()
		return nil, types.ErrBusClosed
	}
	c := &Consumer{address: address, handler: handler, observer: observer, bus: b}
	b.consumers[address] = append(b.consumers[address], c)
	b.Unlock()

	if b.bridge != nil && !observer {
		if err := b.bridge.Listen(ctx, address); err != nil {
			b.unregister(c)
			return nil, err
		}
	}
	return c, nil
}

func (b *Bus) unregister(c *Consumer) {
	b.Lock()
	defer b.Unlock()
	cs := b.consumers[c.address]
	for i, e := range cs {
		if e == c {
			b.consumers[c.address] = append(cs[:i:i], cs[i+1:]...)
			break
		}
	}
	if len(b.consumers[c.address]) == 0 {
		delete(b.consumers, c.address)
		delete(b.next, c.address)
	}
}

// Send delivers body to one consumer of address, local consumers first
func (b *Bus) Send(ctx context.Context, address string, body any, opts ...DeliveryOption) error {
	return b.send(ctx, &Message{Address: address, Body: body}, newOptions(opts))
}

// Publish delivers body to every consumer of address on every node
func (b *Bus) Publish(ctx context.Context, address string, body any, opts ...DeliveryOption) error {
	if address == "" {
		return types.ErrEmptyAddress
	}
	o := newOptions(opts)
	msg := &Message{Address: address, Body: body, Headers: o.Headers}
	consumers, observers := b.pick(address, true)
	b.dispatch(ctx, msg, append(consumers, observers...))

	if b.bridge == nil || o.Local {
		return nil
	}
	env, err := b.envelope(KindPublish, msg, o)
	if err != nil {
		return err
	}
	return b.bridge.Forward(ctx, env)
}

// Request sends body and waits for the reply
func (b *Bus) Request(ctx context.Context, address string, body any, opts ...DeliveryOption) (*Message, error) {
	o := newOptions(opts)
	timeout := b.timeout
	if o.Timeout > 0 {
		timeout = o.Timeout
	}

	replyAddress := replyPrefix + b.node + "." + uuid.NewString()
	ch := make(chan *Message, 1)
	b.replies.Set(replyAddress, ch)
	defer b.replies.Del(replyAddress)

	msg := &Message{Address: address, Body: body, ReplyAddress: replyAddress}
	if err := b.send(ctx, msg, o); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		if rerr, ok := reply.Body.(*types.ReplyError); ok {
			return reply, rerr
		}
		return reply, nil
	case <-timer.C:
		return nil, types.NewDetailedErr(types.ErrReplyTimeout, address)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestBody is Request returning the typed reply body
func RequestBody[T any](ctx context.Context, b *Bus, address string, body any, opts ...DeliveryOption) (T, error) {
	var zero T
	reply, err := b.Request(ctx, address, body, opts...)
	if err != nil {
		return zero, err
	}
	value, ok := reply.Body.(T)
	if !ok {
		return zero, types.NewDetailedErr(types.ErrBadReply, reply.Body)
	}
	return value, nil
}

// Close stops accepting consumers and closes the bridge
func (b *Bus) Close() error {
	b.Lock()
	b.closed = true
	b.consumers = map[string][]*Consumer{}
	b.Unlock()
	if b.bridge != nil {
		return b.bridge.Close()
	}
	return nil
}

func (b *Bus) send(ctx context.Context, msg *Message, o *DeliveryOptions) error {
	if msg.Address == "" {
		return types.ErrEmptyAddress
	}
	msg.Headers = o.Headers
	consumers, observers := b.pick(msg.Address, false)
	if len(consumers) > 0 || b.bridge == nil || o.Local {
		if len(consumers) == 0 && len(observers) == 0 {
			metrics.Client.SendDelivery(msg.Address, "no_consumer")
			return types.NewDetailedErr(types.ErrNoConsumer, msg.Address)
		}
		b.dispatch(ctx, msg, append(consumers, observers...))
		return nil
	}

	b.dispatch(ctx, msg, observers)
	env, err := b.envelope(KindSend, msg, o)
	if err != nil {
		return err
	}
	if msg.ReplyAddress != "" {
		env.ReplyNode = b.node
	}
	return b.bridge.Forward(ctx, env)
}

func (b *Bus) reply(ctx context.Context, to *Message, body any, opts ...DeliveryOption) error {
	o := newOptions(opts)
	msg := &Message{Address: to.ReplyAddress, Body: body, Headers: o.Headers}
	if to.replyNode == "" || to.replyNode == b.node {
		b.deliverReply(msg)
		return nil
	}
	if b.bridge == nil {
		return types.NewDetailedErr(types.ErrNoConsumer, to.ReplyAddress)
	}
	env, err := b.envelope(KindReply, msg, o)
	if err != nil {
		return err
	}
	env.Target = to.replyNode
	return b.bridge.Forward(ctx, env)
}

func (b *Bus) deliverReply(msg *Message) {
	ch, ok := b.replies.Get(msg.Address)
	if !ok {
		log.WithFunc("bus.deliverReply").Warnf(context.TODO(), "reply to %s arrived too late", msg.Address)
		return
	}
	select {
	case ch <- msg:
	default:
	}
}

// pick returns the consumers for this turn and the observers of address
func (b *Bus) pick(address string, all bool) ([]*Consumer, []*Consumer) {
	b.Lock()
	defer b.Unlock()
	var consumers, observers []*Consumer
	for _, c := range b.consumers[address] {
		if c.observer {
			observers = append(observers, c)
		} else {
			consumers = append(consumers, c)
		}
	}
	if all || len(consumers) == 0 {
		return consumers, observers
	}
	i := b.next[address] % len(consumers)
	b.next[address] = i + 1
	return consumers[i : i+1], observers
}

func (b *Bus) dispatch(ctx context.Context, msg *Message, consumers []*Consumer) {
	logger := log.WithFunc("bus.dispatch").WithField("address", msg.Address)
	for _, c := range consumers {
		c := c
		m := *msg
		m.bus = b
		handle := func() {
			c.handler(handlerContext(ctx), &m)
		}
		// a handler waiting on the pool it runs on would starve it
		if inHandler(ctx) {
			utils.SentryGo(handle)
			metrics.Client.SendDelivery(msg.Address, "delivered")
			continue
		}
		if err := b.pool.Invoke(handle); err != nil {
			metrics.Client.SendDelivery(msg.Address, "rejected")
			logger.Error(ctx, err, "handler rejected")
			continue
		}
		metrics.Client.SendDelivery(msg.Address, "delivered")
	}
}

type handlerKey struct{}

func handlerContext(ctx context.Context) context.Context {
	return context.WithValue(utils.InheritTracingInfo(ctx, context.TODO()), handlerKey{}, true)
}

func inHandler(ctx context.Context) bool {
	nested, _ := ctx.Value(handlerKey{}).(bool)
	return nested
}

func (b *Bus) envelope(kind Kind, msg *Message, o *DeliveryOptions) (*Envelope, error) {
	var (
		c   codec.Codec
		err error
	)
	if o.Codec != "" {
		c, err = b.codecs.Get(o.Codec)
	} else {
		c, err = b.codecs.Lookup(msg.Body)
	}
	if err != nil {
		return nil, err
	}
	body, err := c.Encode(msg.Body)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Kind:         kind,
		Node:         b.node,
		Address:      msg.Address,
		ReplyAddress: msg.ReplyAddress,
		Headers:      msg.Headers,
		Codec:        c.Name(),
		Body:         body,
	}, nil
}

func (b *Bus) deliverRemote(ctx context.Context, env *Envelope) {
	logger := log.WithFunc("bus.deliverRemote").WithField("address", env.Address)
	c, err := b.codecs.Get(env.Codec)
	if err != nil {
		logger.Error(ctx, err, "drop envelope")
		return
	}
	body, err := c.Decode(env.Body)
	if err != nil {
		logger.Error(ctx, errors.Wrap(err, env.Codec), "drop envelope")
		return
	}
	msg := &Message{
		Address:      env.Address,
		Headers:      env.Headers,
		Body:         body,
		ReplyAddress: env.ReplyAddress,
		replyNode:    env.ReplyNode,
	}

	switch {
	case env.Kind == KindReply || strings.HasPrefix(env.Address, replyPrefix):
		b.deliverReply(msg)
	case env.Kind == KindPublish:
		if env.Node == b.node {
			return
		}
		consumers, observers := b.pick(env.Address, true)
		b.dispatch(ctx, msg, append(consumers, observers...))
	default:
		consumers, observers := b.pick(env.Address, false)
		if len(consumers) == 0 {
			logger.Warnf(ctx, "no consumer for envelope from %s", env.Node)
		}
		b.dispatch(ctx, msg, append(consumers, observers...))
	}
}
