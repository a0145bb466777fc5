package embedded

import (
	"flag"
	"os"
	"sync"
	"testing"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
	"go.etcd.io/etcd/tests/v3/integration"
)

var (
	mu      sync.Mutex
	members = map[string]*member{}
)

type member struct {
	cluster *integration.ClusterV3
	cli     *clientv3.Client
}

// Client starts a single member cluster once per test.
// Keys of the returned client live under the prefix of the first call.
func Client(t *testing.T, prefix string) *clientv3.Client {
	mu.Lock()
	defer mu.Unlock()
	if m, ok := members[t.Name()]; ok {
		return m.cli
	}

	os.Args = []string{"test.short=false"}
	testing.Init()
	flag.Parse()
	integration.BeforeTestExternal(t)
	cluster := integration.NewClusterV3(t, &integration.ClusterConfig{Size: 1})
	cli := cluster.RandClient()
	cli.KV = namespace.NewKV(cli.KV, prefix)
	cli.Watcher = namespace.NewWatcher(cli.Watcher, prefix)
	cli.Lease = namespace.NewLease(cli.Lease, prefix)
	members[t.Name()] = &member{cluster: cluster, cli: cli}

	t.Cleanup(func() {
		mu.Lock()
		delete(members, t.Name())
		mu.Unlock()
		cluster.Terminate(t)
	})
	return cli
}
