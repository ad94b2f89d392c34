package kvstore

import (
	"context"
	"sync"
)

// FaultyStore wraps a Store and fails reads or writes on demand. It is used
// to exercise the degraded paths of the queue and history.
type FaultyStore struct {
	Store

	mu       sync.Mutex
	getErr   error
	setErr   error
	setCalls int
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner Store) *FaultyStore {
	return &FaultyStore{Store: inner}
}

// FailGets makes every Get return err until cleared with nil.
func (f *FaultyStore) FailGets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// FailSets makes every Set return err until cleared with nil.
func (f *FaultyStore) FailSets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

// SetCalls returns how many writes were attempted.
func (f *FaultyStore) SetCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

func (f *FaultyStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, key)
}

func (f *FaultyStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.setCalls++
	err := f.setErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Set(ctx, key, value)
}
