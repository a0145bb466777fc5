package codec

import (
	"reflect"
	"sync"

	"github.com/flabs/taskmanager/types"
)

// Codec converts a bus message body to and from its wire form
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
	// Type is the body type handled by this codec
	Type() reflect.Type
}

// Registry holds codecs by name, and by body type for lookups of unnamed bodies
type Registry struct {
	sync.RWMutex
	byName map[string]Codec
	byType map[reflect.Type]Codec
}

// NewRegistry .
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{
		byName: map[string]Codec{},
		byType: map[reflect.Type]Codec{},
	}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Register a codec, the first codec registered for a type is the default of this type
func (r *Registry) Register(c Codec) {
	r.Lock()
	defer r.Unlock()
	r.byName[c.Name()] = c
	if _, ok := r.byType[c.Type()]; !ok {
		r.byType[c.Type()] = c
	}
}

// Get codec by name
func (r *Registry) Get(name string) (Codec, error) {
	r.RLock()
	defer r.RUnlock()
	c, ok := r.byName[name]
	if !ok {
		return nil, types.NewDetailedErr(types.ErrUnknownCodec, name)
	}
	return c, nil
}

// Lookup the default codec of v type
func (r *Registry) Lookup(v any) (Codec, error) {
	r.RLock()
	defer r.RUnlock()
	t := reflect.TypeOf(v)
	c, ok := r.byType[t]
	if !ok {
		return nil, types.NewDetailedErr(types.ErrUnknownCodec, t)
	}
	return c, nil
}

// codec names
const (
	Event        = "event"
	TaskInstance = "task"
	TaskSpec     = "spec"
	SpecList     = "spec-list"
	TaskList     = "task-list"
	String       = "string"
)

// Defaults returns a registry with JSON codecs for the orchestration types
// and their msgpack variants, prefixed with "msgpack."
func Defaults() *Registry {
	return NewRegistry(
		NewJSON[*types.Event](Event),
		NewJSON[*types.TaskInstance](TaskInstance),
		NewJSON[*types.TaskSpec](TaskSpec),
		NewJSON[[]*types.TaskSpec](SpecList),
		NewJSON[[]*types.TaskInstance](TaskList),
		NewJSON[string](String),
		NewJSON[*types.ReplyError]("reply-error"),
		NewMsgpack[*types.Event](MsgpackName(Event)),
		NewMsgpack[*types.TaskInstance](MsgpackName(TaskInstance)),
		NewMsgpack[*types.TaskSpec](MsgpackName(TaskSpec)),
		NewMsgpack[[]*types.TaskSpec](MsgpackName(SpecList)),
		NewMsgpack[[]*types.TaskInstance](MsgpackName(TaskList)),
	)
}

// MsgpackName .
func MsgpackName(name string) string {
	return "msgpack." + name
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
