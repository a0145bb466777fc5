package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifier(t *testing.T) {
	config := Config{Store: Etcd}
	config.Etcd = EtcdConfig{
		Machines: []string{
			"1.1.1.1",
			"2.2.2.2",
		},
	}
	r, err := config.Identifier()
	require.NoError(t, err)
	assert.NotEmpty(t, r)

	// same storage, same identifier
	other := config
	other.Bind = ":9999"
	r2, err := other.Identifier()
	require.NoError(t, err)
	assert.Equal(t, r, r2)

	other.Store = SQL
	r3, err := other.Identifier()
	require.NoError(t, err)
	assert.NotEqual(t, r, r3)
}
