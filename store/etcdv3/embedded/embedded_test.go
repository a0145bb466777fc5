package embedded

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	ctx := context.Background()
	cli := Client(t, "/taskmanager")
	_, err := cli.MemberList(ctx)
	assert.NoError(t, err)

	_, err = cli.Put(ctx, "/specs/T0", "{}")
	require.NoError(t, err)
	resp, err := cli.Get(ctx, "/specs/T0")
	require.NoError(t, err)
	require.Len(t, resp.Kvs, 1)
	assert.Equal(t, "{}", string(resp.Kvs[0].Value))

	// one member per test
	assert.Same(t, cli, Client(t, "/other"))
}
