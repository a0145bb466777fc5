package kv

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/maps"
)

// MockedKV is an in memory KV for tests
type MockedKV struct {
	sync.Mutex
	pairs map[string][]byte
	seq   uint64
}

// NewMockedKV .
func NewMockedKV() *MockedKV {
	return &MockedKV{pairs: map[string][]byte{}}
}

// Open .
func (m *MockedKV) Open(context.Context, string, os.FileMode, time.Duration) error {
	m.Lock()
	defer m.Unlock()
	if m.pairs == nil {
		m.pairs = map[string][]byte{}
	}
	return nil
}

// Close drops every pair
func (m *MockedKV) Close(context.Context) error {
	m.Lock()
	defer m.Unlock()
	maps.Clear(m.pairs)
	return nil
}

// NextSequence starts from 1
func (m *MockedKV) NextSequence(context.Context) (uint64, error) {
	m.Lock()
	defer m.Unlock()
	m.seq++
	return m.seq, nil
}

// Put .
func (m *MockedKV) Put(_ context.Context, key, value []byte) error {
	m.Lock()
	defer m.Unlock()
	m.pairs[string(key)] = append([]byte{}, value...)
	return nil
}

// Get fails on a missing key
func (m *MockedKV) Get(_ context.Context, key []byte) ([]byte, error) {
	m.Lock()
	defer m.Unlock()
	value, ok := m.pairs[string(key)]
	if !ok {
		return nil, errors.Wrapf(types.ErrKeyNotExists, "%s", key)
	}
	return value, nil
}

// Delete .
func (m *MockedKV) Delete(_ context.Context, key []byte) error {
	m.Lock()
	defer m.Unlock()
	delete(m.pairs, string(key))
	return nil
}

// Scan streams the pairs in key order
func (m *MockedKV) Scan(_ context.Context, prefix []byte) (<-chan ScanEntry, func()) {
	m.Lock()
	keys := []string{}
	for _, k := range maps.Keys(m.pairs) {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	entries := make([]MockedScanEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, MockedScanEntry{Key: k, Value: m.pairs[k]})
	}
	m.Unlock()

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

// MockedScanEntry .
type MockedScanEntry struct {
	Err   error
	Key   string
	Value []byte
}

// Pair .
func (e MockedScanEntry) Pair() ([]byte, []byte) {
	return []byte(e.Key), e.Value
}

// Error .
func (e MockedScanEntry) Error() error {
	return e.Err
}
