package mockstore

import (
	"context"
	"sync"
	"time"

	"github.com/flabs/taskmanager/lock"
	"github.com/flabs/taskmanager/types"

	"github.com/stretchr/testify/mock"
)

// MockLock for mock lock
type MockLock struct {
	mock.Mock
}

// Lock mock lock
func (m *MockLock) Lock(ctx context.Context) (context.Context, error) {
	args := m.Called()
	return ctx, args.Error(0)
}

// TryLock mock try lock
func (m *MockLock) TryLock(ctx context.Context) (context.Context, error) {
	args := m.Called()
	return ctx, args.Error(0)
}

// Unlock mock unlock
func (m *MockLock) Unlock(context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// DummyLock replace lock for testing
type DummyLock struct {
	m sync.Mutex
}

// Lock for lock
func (d *DummyLock) Lock(ctx context.Context) (context.Context, error) {
	d.m.Lock()
	return ctx, nil
}

// TryLock for try lock
func (d *DummyLock) TryLock(ctx context.Context) (context.Context, error) {
	if !d.m.TryLock() {
		return nil, types.ErrLockTimeout
	}
	return ctx, nil
}

// Unlock for unlock
func (d *DummyLock) Unlock(context.Context) error {
	d.m.Unlock()
	return nil
}

// MockStore mock store
type MockStore struct {
	mock.Mock
}

// AddTaskSpecs fake add specs
func (m *MockStore) AddTaskSpecs(_ context.Context, specs ...*types.TaskSpec) error {
	args := m.Called(specs)
	return args.Error(0)
}

// GetTaskSpec fake get spec
func (m *MockStore) GetTaskSpec(_ context.Context, id string) (*types.TaskSpec, error) {
	args := m.Called(id)
	if args.Get(0) != nil {
		return args.Get(0).(*types.TaskSpec), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetAllTaskSpecs fake get all specs
func (m *MockStore) GetAllTaskSpecs(context.Context) ([]*types.TaskSpec, error) {
	args := m.Called()
	if args.Get(0) != nil {
		return args.Get(0).([]*types.TaskSpec), args.Error(1)
	}
	return nil, args.Error(1)
}

// RemoveTaskSpec fake remove spec
func (m *MockStore) RemoveTaskSpec(_ context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// SaveHierarchies fake save hierarchies
func (m *MockStore) SaveHierarchies(_ context.Context, roots ...*types.TaskInstance) error {
	args := m.Called(roots)
	return args.Error(0)
}

// GetHierarchy fake get hierarchy
func (m *MockStore) GetHierarchy(_ context.Context, rootID string) (*types.TaskInstance, error) {
	args := m.Called(rootID)
	if args.Get(0) != nil {
		return args.Get(0).(*types.TaskInstance), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetAllHierarchies fake get all hierarchies
func (m *MockStore) GetAllHierarchies(context.Context) ([]*types.TaskInstance, error) {
	args := m.Called()
	if args.Get(0) != nil {
		return args.Get(0).([]*types.TaskInstance), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindHierarchyByTask fake find hierarchy
func (m *MockStore) FindHierarchyByTask(_ context.Context, taskID string) (*types.TaskInstance, error) {
	args := m.Called(taskID)
	if args.Get(0) != nil {
		return args.Get(0).(*types.TaskInstance), args.Error(1)
	}
	return nil, args.Error(1)
}

// RemoveHierarchy fake remove hierarchy
func (m *MockStore) RemoveHierarchy(_ context.Context, rootID string) error {
	args := m.Called(rootID)
	return args.Error(0)
}

// CreateLock fake create lock
func (m *MockStore) CreateLock(key string, ttl time.Duration) (lock.DistributedLock, error) {
	args := m.Called(key, ttl)
	if args.Get(0) != nil {
		return args.Get(0).(lock.DistributedLock), args.Error(1)
	}
	return nil, args.Error(1)
}
