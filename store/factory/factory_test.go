package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/flabs/taskmanager/store/memory"
	"github.com/flabs/taskmanager/store/redis"
	"github.com/flabs/taskmanager/store/sql"
	"github.com/flabs/taskmanager/task"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	config := types.Config{}

	sto, err := NewStore(ctx, config, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Memory{}, sto)

	config.Store = types.Redis
	config.Redis.LockPrefix = "/lock"
	sto, err = NewStore(ctx, config, t)
	require.NoError(t, err)
	assert.IsType(t, &redis.Rediaron{}, sto)
	require.NoError(t, sto.AddTaskSpecs(ctx, task.Define("T0")))
	spec, err := sto.GetTaskSpec(ctx, "T0")
	require.NoError(t, err)
	assert.Equal(t, "T0", spec.ID)

	config.Store = types.SQL
	config.SQL = types.SQLConfig{
		Driver:       sql.SQLite,
		DSN:          "file:" + filepath.Join(t.TempDir(), "factory.db"),
		CreateSchema: true,
	}
	sto, err = NewStore(ctx, config, nil)
	require.NoError(t, err)
	assert.IsType(t, &sql.Store{}, sto)

	config.Store = "mongo"
	_, err = NewStore(ctx, config, nil)
	assert.True(t, errors.Is(err, types.ErrUnknownStore))
}
