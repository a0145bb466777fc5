package kv

import (
	"context"
	"os"
	"time"
)

// KV is an ordered byte key/value store backing the WAL
type KV interface {
	Open(ctx context.Context, path string, mode os.FileMode, timeout time.Duration) error
	Close(context.Context) error

	Put(ctx context.Context, key, value []byte) error
	Get(ctx context.Context, key []byte) ([]byte, error)
	Delete(ctx context.Context, key []byte) error

	// Scan streams the pairs under prefix, the func stops the stream
	Scan(ctx context.Context, prefix []byte) (<-chan ScanEntry, func())
	NextSequence(context.Context) (uint64, error)
}

// ScanEntry is a scanned pair or the error ending the scan
type ScanEntry interface {
	Pair() (key []byte, value []byte)
	Error() error
}
