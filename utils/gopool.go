package utils

import (
	"github.com/flabs/taskmanager/log"

	"github.com/panjf2000/ants/v2"
)

// NewBlockingPool new a pool which waits for a free worker
func NewBlockingPool(max int) (*ants.PoolWithFunc, error) {
	return ants.NewPoolWithFunc(max, func(i any) {
		defer log.SentryDefer()
		f, _ := i.(func())
		f()
	})
}
