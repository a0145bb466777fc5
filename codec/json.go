package codec

import (
	"encoding/binary"
	"encoding/json"
	"reflect"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
)

const lengthSize = 4

// JSON is a length prefixed JSON codec:
// a big endian uint32 with the document size followed by the document
type JSON[T any] struct {
	name string
}

// NewJSON .
func NewJSON[T any](name string) *JSON[T] {
	return &JSON[T]{name: name}
}

// Name .
func (c *JSON[T]) Name() string {
	return c.name
}

// Type .
func (c *JSON[T]) Type() reflect.Type {
	return typeOf[T]()
}

// Encode .
func (c *JSON[T]) Encode(v any) ([]byte, error) {
	value, ok := v.(T)
	if !ok {
		return nil, types.NewDetailedErr(types.ErrBadPayload, reflect.TypeOf(v))
	}
	doc, err := json.Marshal(value)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	buf := make([]byte, lengthSize+len(doc))
	binary.BigEndian.PutUint32(buf, uint32(len(doc)))
	copy(buf[lengthSize:], doc)
	return buf, nil
}

// Decode .
func (c *JSON[T]) Decode(b []byte) (any, error) {
	return c.DecodeValue(b)
}

// DecodeValue is Decode with the concrete type
func (c *JSON[T]) DecodeValue(b []byte) (T, error) {
	var value T
	if len(b) < lengthSize {
		return value, types.NewDetailedErr(types.ErrBadPayload, "missing length")
	}
	size := int(binary.BigEndian.Uint32(b))
	if len(b)-lengthSize < size {
		return value, types.NewDetailedErr(types.ErrBadPayload, "truncated document")
	}
	if err := json.Unmarshal(b[lengthSize:lengthSize+size], &value); err != nil {
		return value, errors.Wrap(types.ErrBadPayload, err.Error())
	}
	return value, nil
}
