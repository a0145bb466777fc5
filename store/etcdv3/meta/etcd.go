package meta

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flabs/taskmanager/lock"
	"github.com/flabs/taskmanager/lock/etcdlock"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/store/etcdv3/embedded"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"go.etcd.io/etcd/api/v3/mvccpb"
	"go.etcd.io/etcd/client/pkg/v3/transport"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
	"go.uber.org/zap"
)

const txnLimit = 125

// ETCD .
type ETCD struct {
	cliv3  *clientv3.Client
	config types.EtcdConfig
	owned  bool
}

// NewETCD initailizes a new ETCD instance.
// an embedded cluster is started when t is given
func NewETCD(config types.EtcdConfig, t *testing.T) (*ETCD, error) {
	var cliv3 *clientv3.Client
	var err error
	var tlsConfig *tls.Config

	switch {
	case t != nil:
		cliv3 = embedded.Client(t, config.Prefix)
		log.WithFunc("store.etcdv3.meta.NewETCD").Info(context.TODO(), "use embedded cluster")
		return &ETCD{cliv3: cliv3, config: config}, nil
	case config.Ca != "" && config.Key != "" && config.Cert != "":
		tlsInfo := transport.TLSInfo{
			TrustedCAFile: config.Ca,
			KeyFile:       config.Key,
			CertFile:      config.Cert,
		}
		if tlsConfig, err = tlsInfo.ClientConfig(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	logger, err := clientLogger()
	if err != nil {
		return nil, err
	}
	if cliv3, err = clientv3.New(clientv3.Config{
		Endpoints:   config.Machines,
		Username:    config.Auth.Username,
		Password:    config.Auth.Password,
		DialTimeout: config.DialTimeout,
		TLS:         tlsConfig,
		Logger:      logger,
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	cliv3.KV = namespace.NewKV(cliv3.KV, config.Prefix)
	cliv3.Watcher = namespace.NewWatcher(cliv3.Watcher, config.Prefix)
	cliv3.Lease = namespace.NewLease(cliv3.Lease, config.Prefix)
	return &ETCD{cliv3: cliv3, config: config, owned: true}, nil
}

// etcd client only speaks zap, keep it quiet below warn
func clientLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	zcfg.Sampling = nil
	logger, err := zcfg.Build()
	return logger, errors.WithStack(err)
}

// CreateLock create a lock instance
func (e *ETCD) CreateLock(key string, ttl time.Duration) (lock.DistributedLock, error) {
	lockKey := fmt.Sprintf("%s/%s", e.config.LockPrefix, key)
	mutex, err := etcdlock.New(e.cliv3, lockKey, ttl)
	return mutex, err
}

// Get get results or noting
func (e *ETCD) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	resp, err := e.cliv3.Get(ctx, key, opts...)
	return resp, errors.WithStack(err)
}

// GetOne get one result or noting
func (e *ETCD) GetOne(ctx context.Context, key string, opts ...clientv3.OpOption) (*mvccpb.KeyValue, error) {
	resp, err := e.Get(ctx, key, opts...)
	if err != nil {
		return nil, err
	}
	if resp.Count != 1 {
		return nil, errors.Wrapf(types.ErrInvaildCount, "key: %s", key)
	}
	return resp.Kvs[0], nil
}

// GetMulti gets several results, missing keys are skipped
func (e *ETCD) GetMulti(ctx context.Context, keys []string, opts ...clientv3.OpOption) (kvs []*mvccpb.KeyValue, err error) {
	var txnResponse *clientv3.TxnResponse
	if len(keys) == 0 {
		return
	}
	if txnResponse, err = e.batchGet(ctx, keys, opts...); err != nil {
		return
	}
	for _, responseOp := range txnResponse.Responses {
		resp := responseOp.GetResponseRange()
		kvs = append(kvs, resp.Kvs...)
	}
	return
}

// Delete delete key
func (e *ETCD) Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	resp, err := e.cliv3.Delete(ctx, key, opts...)
	return resp, errors.WithStack(err)
}

// Put save a key value
func (e *ETCD) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	resp, err := e.cliv3.Put(ctx, key, val, opts...)
	return resp, errors.WithStack(err)
}

// Close the client when it is not the embedded one
func (e *ETCD) Close() error {
	if !e.owned {
		return nil
	}
	return errors.WithStack(e.cliv3.Close())
}

func (e *ETCD) batchGet(ctx context.Context, keys []string, opts ...clientv3.OpOption) (*clientv3.TxnResponse, error) {
	ops := make([]clientv3.Op, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, clientv3.OpGet(key, opts...))
	}
	return e.commit(ctx, ops)
}

// BatchDelete .
func (e *ETCD) BatchDelete(ctx context.Context, keys []string, opts ...clientv3.OpOption) (*clientv3.TxnResponse, error) {
	ops := make([]clientv3.Op, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, clientv3.OpDelete(key, opts...))
	}
	return e.commit(ctx, ops)
}

// BatchPut .
func (e *ETCD) BatchPut(ctx context.Context, data map[string]string, opts ...clientv3.OpOption) (*clientv3.TxnResponse, error) {
	ops := make([]clientv3.Op, 0, len(data))
	for key, val := range data {
		ops = append(ops, clientv3.OpPut(key, val, opts...))
	}
	return e.commit(ctx, ops)
}

// commit runs ops in txns of at most txnLimit ops each, concurrently.
// Responses are merged in ops order.
func (e *ETCD) commit(ctx context.Context, ops []clientv3.Op) (*clientv3.TxnResponse, error) {
	if len(ops) == 0 {
		return nil, errors.WithStack(types.ErrNoOps)
	}

	chunks := [][]clientv3.Op{}
	for len(ops) > txnLimit {
		chunks = append(chunks, ops[:txnLimit])
		ops = ops[txnLimit:]
	}
	chunks = append(chunks, ops)

	resps := make([]*clientv3.TxnResponse, len(chunks))
	errs := make([]error, len(chunks))
	wg := sync.WaitGroup{}
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []clientv3.Op) {
			defer wg.Done()
			resps[i], errs[i] = e.cliv3.Txn(ctx).Then(chunk...).Commit()
		}(i, chunk)
	}
	wg.Wait()
	var err error
	for _, e := range errs {
		err = errors.CombineErrors(err, e)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp := resps[0]
	for _, r := range resps[1:] {
		resp.Succeeded = resp.Succeeded && r.Succeeded
		resp.Responses = append(resp.Responses, r.Responses...)
	}
	return resp, nil
}
