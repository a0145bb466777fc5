package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/suite"
)

type RedisLockTestSuite struct {
	suite.Suite

	cli *redis.Client
}

func (s *RedisLockTestSuite) SetupTest() {
	s.cli.FlushAll(context.Background())
}

func (s *RedisLockTestSuite) TestMutex() {
	_, err := New(s.cli, "", time.Second, time.Second)
	s.ErrorIs(err, types.ErrKeyIsEmpty)
	l, err := New(s.cli, "lock/hierarchy_R", time.Second, time.Second)
	s.NoError(err)
	s.Equal("/lock/hierarchy_R", l.key)

	ctx, err := l.Lock(context.Background())
	s.NoError(err)
	s.Nil(ctx.Err())

	s.NoError(l.Unlock(context.Background()))
	s.Error(ctx.Err())
	s.ErrorIs(l.Unlock(context.Background()), types.ErrLockNotHeld)
}

func (s *RedisLockTestSuite) TestTryLock() {
	l1, err := New(s.cli, "hierarchy_R", time.Second, time.Second)
	s.NoError(err)
	l2, err := New(s.cli, "hierarchy_R", time.Second, time.Second)
	s.NoError(err)

	ctx1, err := l1.Lock(context.Background())
	s.NoError(err)
	s.Nil(ctx1.Err())

	ctx2, err := l2.TryLock(context.Background())
	s.Nil(ctx2)
	s.ErrorIs(err, types.ErrLockTimeout)

	s.NoError(l1.Unlock(context.Background()))
	ctx2, err = l2.TryLock(context.Background())
	s.NoError(err)
	s.NotNil(ctx2)
	s.NoError(l2.Unlock(context.Background()))
}

func (s *RedisLockTestSuite) TestExpire() {
	l, err := New(s.cli, "hierarchy_R", time.Second, 100*time.Millisecond)
	s.NoError(err)
	ctx, err := l.Lock(context.Background())
	s.NoError(err)
	<-ctx.Done()
	s.ErrorIs(context.Cause(ctx), types.ErrLockSessionDone)
}

func TestRedisLock(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	cli := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
		DB:   0,
	})
	defer cli.Close()
	suite.Run(t, &RedisLockTestSuite{
		cli: cli,
	})
}
