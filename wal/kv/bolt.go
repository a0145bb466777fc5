package kv

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"
)

// DefaultBucket holds the WAL entries
var DefaultBucket = []byte("events")

// Bolt is a KV on a single bbolt bucket
type Bolt struct {
	mu     sync.Mutex
	db     *bolt.DB
	bucket []byte
}

// NewBolt .
func NewBolt(bucket []byte) *Bolt {
	if len(bucket) == 0 {
		bucket = DefaultBucket
	}
	return &Bolt{bucket: bucket}
}

// Open opens or creates the db file and its bucket
func (b *Bolt) Open(_ context.Context, path string, mode os.FileMode, timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db != nil {
		return errors.Newf("%s already opened", b.db.Path())
	}

	db, err := bolt.Open(path, mode, &bolt.Options{Timeout: timeout})
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return errors.WithStack(err)
	}
	b.db = db
	return nil
}

// Close .
func (b *Bolt) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return errors.WithStack(err)
}

// Put .
func (b *Bolt) Put(_ context.Context, key, value []byte) error {
	return b.update(func(bkt *bolt.Bucket) error {
		return bkt.Put(key, value)
	})
}

// Get returns a copy of the value, a missing key gives an empty value
func (b *Bolt) Get(_ context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := b.view(func(bkt *bolt.Bucket) error {
		value = append([]byte{}, bkt.Get(key)...)
		return nil
	})
	return value, err
}

// Delete .
func (b *Bolt) Delete(_ context.Context, key []byte) error {
	return b.update(func(bkt *bolt.Bucket) error {
		return bkt.Delete(key)
	})
}

// NextSequence .
func (b *Bolt) NextSequence(context.Context) (seq uint64, err error) {
	err = b.update(func(bkt *bolt.Bucket) error {
		seq, err = bkt.NextSequence()
		return err
	})
	return seq, err
}

// Scan streams a snapshot of the pairs under prefix in key order,
// the returned func stops the stream early
func (b *Bolt) Scan(_ context.Context, prefix []byte) (<-chan ScanEntry, func()) {
	entries := []ScanEntry{}
	if err := b.view(func(bkt *bolt.Bucket) error {
		c := bkt.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			entries = append(entries, boltEntry{
				key:   append([]byte{}, k...),
				value: append([]byte{}, v...),
			})
		}
		return nil
	}); err != nil {
		entries = []ScanEntry{boltEntry{err: err}}
	}

	ch := make(chan ScanEntry)
	exit := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(ch)
		for _, ent := range entries {
			select {
			case <-exit:
				return
			case ch <- ent:
			}
		}
	}()
	return ch, func() { once.Do(func() { close(exit) }) }
}

func (b *Bolt) view(fn func(*bolt.Bucket) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return errors.WithStack(bolt.ErrDatabaseNotOpen)
	}
	return b.db.View(func(tx *bolt.Tx) error {
		bkt, err := b.get(tx)
		if err != nil {
			return err
		}
		return fn(bkt)
	})
}

func (b *Bolt) update(fn func(*bolt.Bucket) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return errors.WithStack(bolt.ErrDatabaseNotOpen)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := b.get(tx)
		if err != nil {
			return err
		}
		return fn(bkt)
	})
}

func (b *Bolt) get(tx *bolt.Tx) (*bolt.Bucket, error) {
	if bkt := tx.Bucket(b.bucket); bkt != nil {
		return bkt, nil
	}
	return nil, types.NewDetailedErr(types.ErrInvalidWALBucket, string(b.bucket))
}

type boltEntry struct {
	err   error
	key   []byte
	value []byte
}

// Pair .
func (e boltEntry) Pair() ([]byte, []byte) {
	return e.key, e.value
}

// Error .
func (e boltEntry) Error() error {
	return e.err
}
