package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flabs/taskmanager/lock"
	"github.com/flabs/taskmanager/lock/local"
	"github.com/flabs/taskmanager/store"
	"github.com/flabs/taskmanager/types"
)

// Memory keeps everything in process, values are stored encoded
// so callers never share state with the store
type Memory struct {
	sync.RWMutex
	specs       map[string][]byte
	hierarchies map[string][]byte
	index       map[string]string // task id -> root id
	locks       *local.Locks
}

// New .
func New() *Memory {
	return &Memory{
		specs:       map[string][]byte{},
		hierarchies: map[string][]byte{},
		index:       map[string]string{},
		locks:       local.NewLocks(),
	}
}

// AddTaskSpecs upserts root specs
func (m *Memory) AddTaskSpecs(_ context.Context, specs ...*types.TaskSpec) error {
	if err := store.ValidateSpecs(specs); err != nil {
		return err
	}
	data := map[string][]byte{}
	for _, spec := range specs {
		b, err := store.Encode(spec)
		if err != nil {
			return err
		}
		data[spec.ID] = b
	}
	m.Lock()
	defer m.Unlock()
	for id, b := range data {
		m.specs[id] = b
	}
	return nil
}

// GetTaskSpec .
func (m *Memory) GetTaskSpec(_ context.Context, id string) (*types.TaskSpec, error) {
	m.RLock()
	b, ok := m.specs[id]
	m.RUnlock()
	if !ok {
		return nil, types.NewDetailedErr(types.ErrTaskSpecNotFound, id)
	}
	return store.DecodeSpec(b)
}

// GetAllTaskSpecs sorted by id
func (m *Memory) GetAllTaskSpecs(_ context.Context) ([]*types.TaskSpec, error) {
	m.RLock()
	defer m.RUnlock()
	specs := make([]*types.TaskSpec, 0, len(m.specs))
	for _, b := range m.specs {
		spec, err := store.DecodeSpec(b)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return store.SortSpecs(specs), nil
}

// RemoveTaskSpec .
func (m *Memory) RemoveTaskSpec(_ context.Context, id string) error {
	m.Lock()
	defer m.Unlock()
	if _, ok := m.specs[id]; !ok {
		return types.NewDetailedErr(types.ErrTaskSpecNotFound, id)
	}
	delete(m.specs, id)
	return nil
}

// SaveHierarchies upserts hierarchies by root id and indexes their tasks
func (m *Memory) SaveHierarchies(_ context.Context, roots ...*types.TaskInstance) error {
	if err := store.ValidateHierarchies(roots); err != nil {
		return err
	}
	data := map[string][]byte{}
	for _, root := range roots {
		b, err := store.Encode(root)
		if err != nil {
			return err
		}
		data[root.ID] = b
	}
	m.Lock()
	defer m.Unlock()
	for _, root := range roots {
		m.hierarchies[root.ID] = data[root.ID]
		for _, id := range store.TaskIDs(root) {
			m.index[id] = root.ID
		}
	}
	return nil
}

// GetHierarchy .
func (m *Memory) GetHierarchy(_ context.Context, rootID string) (*types.TaskInstance, error) {
	m.RLock()
	b, ok := m.hierarchies[rootID]
	m.RUnlock()
	if !ok {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, rootID)
	}
	return store.DecodeHierarchy(b)
}

// GetAllHierarchies sorted by root id
func (m *Memory) GetAllHierarchies(_ context.Context) ([]*types.TaskInstance, error) {
	m.RLock()
	defer m.RUnlock()
	roots := make([]*types.TaskInstance, 0, len(m.hierarchies))
	for _, b := range m.hierarchies {
		root, err := store.DecodeHierarchy(b)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return store.SortHierarchies(roots), nil
}

// FindHierarchyByTask returns the hierarchy containing the task
func (m *Memory) FindHierarchyByTask(ctx context.Context, taskID string) (*types.TaskInstance, error) {
	m.RLock()
	rootID, ok := m.index[taskID]
	m.RUnlock()
	if !ok {
		return nil, types.NewDetailedErr(types.ErrHierarchyNotFound, taskID)
	}
	return m.GetHierarchy(ctx, rootID)
}

// RemoveHierarchy drops the hierarchy and its index entries
func (m *Memory) RemoveHierarchy(_ context.Context, rootID string) error {
	m.Lock()
	defer m.Unlock()
	b, ok := m.hierarchies[rootID]
	if !ok {
		return types.NewDetailedErr(types.ErrHierarchyNotFound, rootID)
	}
	root, err := store.DecodeHierarchy(b)
	if err != nil {
		return err
	}
	for _, id := range store.TaskIDs(root) {
		if m.index[id] == rootID {
			delete(m.index, id)
		}
	}
	delete(m.hierarchies, rootID)
	return nil
}

// CreateLock creates an in-process lock, ttl is used as the wait timeout
func (m *Memory) CreateLock(key string, ttl time.Duration) (lock.DistributedLock, error) {
	mu, err := m.locks.New(key, ttl)
	if err != nil {
		return nil, err
	}
	return mu, nil
}
