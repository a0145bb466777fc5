package local

import (
	"context"
	"testing"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutex(t *testing.T) {
	locks := NewLocks()
	_, err := locks.New("", time.Second)
	assert.True(t, errors.Is(err, types.ErrKeyIsEmpty))

	m1, err := locks.New("T0", 100*time.Millisecond)
	require.NoError(t, err)
	m2, err := locks.New("T0", 100*time.Millisecond)
	require.NoError(t, err)
	other, err := locks.New("T1", 100*time.Millisecond)
	require.NoError(t, err)

	ctx, err := m1.Lock(context.Background())
	require.NoError(t, err)
	assert.NoError(t, ctx.Err())

	_, err = m2.TryLock(context.Background())
	assert.True(t, errors.Is(err, types.ErrLockTimeout))
	_, err = m2.Lock(context.Background())
	assert.True(t, errors.Is(err, types.ErrLockTimeout))

	otherCtx, err := other.TryLock(context.Background())
	require.NoError(t, err)
	assert.NoError(t, other.Unlock(otherCtx))

	assert.NoError(t, m1.Unlock(ctx))
	assert.Error(t, ctx.Err())
	assert.True(t, errors.Is(m1.Unlock(ctx), types.ErrLockNotHeld))

	done := make(chan struct{})
	ctx2, err := m2.Lock(context.Background())
	require.NoError(t, err)
	go func() {
		defer close(done)
		_, err := m1.Lock(context.Background())
		assert.Error(t, err)
	}()
	<-done
	assert.NoError(t, m2.Unlock(ctx2))
}
