package utils

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/flabs/taskmanager/types"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomString random a string
func RandomString(n int) string {
	r := make([]byte, n)
	for i := 0; i < n; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			continue
		}
		r[i] = letters[n.Int64()]
	}
	return string(r)
}

// WithTracingID attaches a fresh tracing id unless ctx already has one
func WithTracingID(ctx context.Context) context.Context {
	if tid, ok := ctx.Value(types.TracingID).(string); ok && tid != "" {
		return ctx
	}
	return context.WithValue(ctx, types.TracingID, RandomString(8))
}

// InheritTracingInfo copies tracing id from ctx into newCtx
func InheritTracingInfo(ctx, newCtx context.Context) context.Context {
	if tid, ok := ctx.Value(types.TracingID).(string); ok {
		return context.WithValue(newCtx, types.TracingID, tid)
	}
	return newCtx
}
