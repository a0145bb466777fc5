package etcdv3

import (
	"context"
	"testing"

	"github.com/flabs/taskmanager/store/etcdv3/meta"
	"github.com/flabs/taskmanager/types"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	specKey      = "/specs/%s"       // /specs/{specID} -> root spec
	hierarchyKey = "/hierarchies/%s" // /hierarchies/{rootID} -> task hierarchy
	taskIndexKey = "/tasks/%s"       // /tasks/{taskID} -> root id

	specPrefix      = "/specs/"
	hierarchyPrefix = "/hierarchies/"
)

// Mercury means store with etcdv3
type Mercury struct {
	meta.KV
	config types.Config
}

// New for create a Mercury instance
func New(config types.Config, t *testing.T) (*Mercury, error) {
	etcd, err := meta.NewETCD(config.Etcd, t)
	if err != nil {
		return nil, err
	}
	return &Mercury{KV: etcd, config: config}, nil
}

func (m *Mercury) getValues(ctx context.Context, prefix string) ([][]byte, error) {
	resp, err := m.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}
	values := make([][]byte, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		values = append(values, kv.Value)
	}
	return values, nil
}
