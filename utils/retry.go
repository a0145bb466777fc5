package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs f with exponential backoff until it succeeds, ctx is done or max retries are used
func Retry(ctx context.Context, max int, f func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.Retry(f, backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(max)))
}

// Permanent stops Retry
func Permanent(err error) error {
	return backoff.Permanent(err)
}
