package prefs

import (
	"context"
	"errors"
	"sync"
)

// Memory is an in-memory Backend for tests and for running without a
// writable disk.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
	puts   int

	// PutError, if set, is returned by Put.
	PutError error
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Put(_ context.Context, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutError != nil {
		return m.PutError
	}
	for k, v := range values {
		m.values[k] = v
	}
	m.puts++
	return nil
}

// Puts returns how many successful Put calls were made.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		return errors.New("prefs: memory backend already closed")
	}
	m.values = nil
	return nil
}
