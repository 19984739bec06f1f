// Package checkpoint persists the from_date used for the next poll.
package checkpoint

import (
	"context"
	"sync"
)

// Store loads and saves the poll checkpoint.
type Store interface {
	// Load returns the saved checkpoint; ok is false when none exists yet.
	Load(ctx context.Context) (value int64, ok bool, err error)
	Save(ctx context.Context, value int64) error
	Close() error
}

// Memory keeps the checkpoint for the lifetime of the process.
type Memory struct {
	mu    sync.Mutex
	value int64
	set   bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(context.Context) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.set, nil
}

func (m *Memory) Save(_ context.Context, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	m.set = true
	return nil
}

func (m *Memory) Close() error { return nil }
