package bus

import (
	"context"
)

// Kind of an envelope
type Kind string

const (
	// KindSend is point to point
	KindSend Kind = "send"
	// KindPublish goes to every node
	KindPublish Kind = "publish"
	// KindReply goes to the requesting node
	KindReply Kind = "reply"
)

// Envelope is a message in transit between nodes
type Envelope struct {
	Kind         Kind              `msgpack:"kind"`
	Node         string            `msgpack:"node"`   // sender
	Target       string            `msgpack:"target"` // replies only
	Address      string            `msgpack:"address"`
	ReplyAddress string            `msgpack:"reply_address,omitempty"`
	ReplyNode    string            `msgpack:"reply_node,omitempty"`
	Headers      map[string]string `msgpack:"headers,omitempty"`
	Codec        string            `msgpack:"codec"`
	Body         []byte            `msgpack:"body"`
}

// Bridge links the buses of several nodes
type Bridge interface {
	// Listen starts taking point to point messages of address
	Listen(ctx context.Context, address string) error
	Forward(ctx context.Context, env *Envelope) error
	// Run delivers incoming envelopes until ctx is done
	Run(ctx context.Context, node string, deliver func(context.Context, *Envelope)) error
	Close() error
}
