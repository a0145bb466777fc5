package wal

import (
	"context"
)

// WAL is the interface that groups the Register and Recover interfaces.
type WAL interface {
	Registry
	Recoverer
	Logger
	Closer
}

// Recoverer is the interface that wraps the basic Recover method.
type Recoverer interface {
	Recover(context.Context)
}

// Registry is the interface that wraps the basic Register method.
type Registry interface {
	Register(EventHandler)
}

// Logger is the interface that wraps the basic Log method.
type Logger interface {
	Log(context.Context, string, any) (Commit, error)
}

// Closer is the interface that wraps the basic Close method.
type Closer interface {
	Close(context.Context) error
}

// EventHandler is the interface that groups a few methods.
type EventHandler interface {
	Event() string
	Check(context.Context, any) (need bool, err error)
	Encode(any) ([]byte, error)
	Decode([]byte) (any, error)
	Handle(context.Context, any) error
}

// Commit is a function for committing an event log.
type Commit func(context.Context) error

// SimpleEventHandler simply implements the EventHandler.
type SimpleEventHandler struct {
	EventType string
	CheckFn   func(context.Context, any) (bool, error)
	EncodeFn  func(any) ([]byte, error)
	DecodeFn  func([]byte) (any, error)
	HandleFn  func(context.Context, any) error
}

// Event .
func (h SimpleEventHandler) Event() string {
	return h.EventType
}

// Check .
func (h SimpleEventHandler) Check(ctx context.Context, raw any) (bool, error) {
	return h.CheckFn(ctx, raw)
}

// Encode .
func (h SimpleEventHandler) Encode(raw any) ([]byte, error) {
	return h.EncodeFn(raw)
}

// Decode .
func (h SimpleEventHandler) Decode(bs []byte) (any, error) {
	return h.DecodeFn(bs)
}

// Handle .
func (h SimpleEventHandler) Handle(ctx context.Context, raw any) error {
	return h.HandleFn(ctx, raw)
}
