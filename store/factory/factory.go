package factory

import (
	"context"
	"testing"

	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/store/etcdv3"
	"github.com/flabs/taskmanager/store/memory"
	"github.com/flabs/taskmanager/store/redis"
	"github.com/flabs/taskmanager/store/sql"
	"github.com/flabs/taskmanager/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
)

// NewStore creates a store
// t is only given when running with embedded storage
func NewStore(ctx context.Context, config types.Config, t *testing.T) (sto store.Store, err error) {
	switch config.Store {
	case types.Memory, "":
		sto = memory.New()
	case types.Redis:
		if t != nil {
			s, err := miniredis.Run()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			t.Cleanup(s.Close)
			config.Redis.Addr = s.Addr()
		}
		sto, err = redis.New(config)
	case types.Etcd:
		sto, err = etcdv3.New(config, t)
	case types.SQL:
		sto, err = sql.New(ctx, config.SQL)
	default:
		err = types.NewDetailedErr(types.ErrUnknownStore, config.Store)
	}
	return sto, err
}
