package codec

import (
	"reflect"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack codec
type Msgpack[T any] struct {
	name string
}

// NewMsgpack .
func NewMsgpack[T any](name string) *Msgpack[T] {
	return &Msgpack[T]{name: name}
}

// Name .
func (c *Msgpack[T]) Name() string {
	return c.name
}

// Type .
func (c *Msgpack[T]) Type() reflect.Type {
	return typeOf[T]()
}

// Encode .
func (c *Msgpack[T]) Encode(v any) ([]byte, error) {
	value, ok := v.(T)
	if !ok {
		return nil, types.NewDetailedErr(types.ErrBadPayload, reflect.TypeOf(v))
	}
	b, err := msgpack.Marshal(value)
	return b, errors.WithStack(err)
}

// Decode .
func (c *Msgpack[T]) Decode(b []byte) (any, error) {
	var value T
	if err := msgpack.Unmarshal(b, &value); err != nil {
		return value, errors.Wrap(types.ErrBadPayload, err.Error())
	}
	return value, nil
}
