package bus

import (
	"context"
	"time"

	"github.com/flabs/taskmanager/types"
)

// Handler consumes messages of an address
type Handler func(ctx context.Context, msg *Message)

// Message delivered to a handler
type Message struct {
	Address      string
	Headers      map[string]string
	Body         any
	ReplyAddress string

	replyNode string
	bus       *Bus
}

// Reply answers a request, it's a no-op when the sender didn't ask for a reply
func (m *Message) Reply(ctx context.Context, body any, opts ...DeliveryOption) error {
	if m.ReplyAddress == "" {
		return nil
	}
	return m.bus.reply(ctx, m, body, opts...)
}

// Fail replies with an error
func (m *Message) Fail(ctx context.Context, code int, message string) error {
	return m.Reply(ctx, &types.ReplyError{Code: code, Message: message})
}

// DeliveryOptions .
type DeliveryOptions struct {
	Codec   string
	Headers map[string]string
	Timeout time.Duration
	Local   bool
}

// DeliveryOption .
type DeliveryOption func(*DeliveryOptions)

// WithCodec sets the codec used when the message leaves the process
func WithCodec(name string) DeliveryOption {
	return func(o *DeliveryOptions) { o.Codec = name }
}

// WithHeader .
func WithHeader(key, value string) DeliveryOption {
	return func(o *DeliveryOptions) {
		if o.Headers == nil {
			o.Headers = map[string]string{}
		}
		o.Headers[key] = value
	}
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) DeliveryOption {
	return func(o *DeliveryOptions) { o.Timeout = timeout }
}

// LocalOnly never forwards to the cluster bridge
func LocalOnly() DeliveryOption {
	return func(o *DeliveryOptions) { o.Local = true }
}

func newOptions(opts []DeliveryOption) *DeliveryOptions {
	o := &DeliveryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
