package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	c := NewCache[[]string](time.Hour, time.Minute)

	key := "event-a"
	c.Set(key, []string{"spec-a", "spec-b"})
	v, ok := c.Get(key)
	assert.True(t, ok)
	assert.Equal(t, []string{"spec-a", "spec-b"}, v)

	c.Delete(key)
	_, ok = c.Get(key)
	assert.False(t, ok)

	c.Set(key, nil)
	c.Flush()
	_, ok = c.Get(key)
	assert.False(t, ok)
}
