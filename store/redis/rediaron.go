package redis

import (
	"context"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
)

const (
	// storage key pattern
	specKey      = "/specs/%s"       // /specs/{specID} -> root spec
	hierarchyKey = "/hierarchies/%s" // /hierarchies/{rootID} -> task hierarchy
	taskIndexKey = "/tasks/%s"       // /tasks/{taskID} -> root id

	scanCount = 100
)

func isRedisNoKeyError(e error) bool {
	return errors.Is(e, redis.Nil)
}

// Rediaron is a store implemented by redis
type Rediaron struct {
	cli    *redis.Client
	config types.Config
}

// New creates a new Rediaron instance from config
// Only redis address and db is used
// db is used to separate data, by default db 0 will be used
func New(config types.Config) (*Rediaron, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: config.Redis.Addr,
		DB:   config.Redis.DB,
	})
	return NewWithClient(cli, config), nil
}

// NewWithClient wraps an existing client
func NewWithClient(cli *redis.Client, config types.Config) *Rediaron {
	return &Rediaron{cli: cli, config: config}
}

// Client exposes the redis client, the bus bridge shares it
func (r *Rediaron) Client() *redis.Client {
	return r.cli
}

// GetOne is a wrapper
func (r *Rediaron) GetOne(ctx context.Context, key string) (string, error) {
	value, err := r.cli.Get(ctx, key).Result()
	if isRedisNoKeyError(err) {
		return "", types.NewDetailedErr(types.ErrKeyNotExists, key)
	}
	return value, errors.WithStack(err)
}

// GetMulti reads keys with MGET, missing keys are skipped
func (r *Rediaron) GetMulti(ctx context.Context, keys []string) (map[string]string, error) {
	data := map[string]string{}
	if len(keys) == 0 {
		return data, nil
	}
	values, err := r.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			data[keys[i]] = s
		}
	}
	return data, nil
}

// ScanValues reads every key under prefix
func (r *Rediaron) ScanValues(ctx context.Context, prefix string) (map[string]string, error) {
	keys := []string{}
	iter := r.cli.Scan(ctx, 0, prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return r.GetMulti(ctx, keys)
}

// BatchPut writes all data in one transaction
func (r *Rediaron) BatchPut(ctx context.Context, data map[string]string) error {
	if len(data) == 0 {
		return errors.WithStack(types.ErrNoOps)
	}
	put := func(pipe redis.Pipeliner) error {
		for key, value := range data {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	}
	_, err := r.cli.TxPipelined(ctx, put)
	return errors.WithStack(err)
}

// BatchDelete is wrapper to adapt etcd batch delete
func (r *Rediaron) BatchDelete(ctx context.Context, keys []string) error {
	del := func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, key)
		}
		return nil
	}
	_, err := r.cli.TxPipelined(ctx, del)
	return errors.WithStack(err)
}

// Close the client
func (r *Rediaron) Close() {
	if err := r.cli.Close(); err != nil {
		log.WithFunc("store.redis.Close").Error(context.TODO(), err, "failed to close redis client")
	}
}
