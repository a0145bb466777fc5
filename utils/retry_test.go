package utils

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()
	cnt := 0
	err := Retry(ctx, 5, func() error {
		cnt++
		if cnt < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, cnt)

	cnt = 0
	err = Retry(ctx, 2, func() error {
		cnt++
		return errors.New("never")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, cnt)

	cnt = 0
	err = Retry(ctx, 5, func() error {
		cnt++
		return Permanent(errors.New("stop"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, cnt)
}
