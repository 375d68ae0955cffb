// Package nvs is the durable key/value and blob store the oscillator
// persists into. It mirrors the small surface of a flash NVS partition: one
// namespace of integer scalars and byte blobs, changed in place and made
// durable by Commit.
package nvs

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by Get* when the key has never been set or was
// erased.
var ErrNotFound = errors.New("nvs: key not found")

// Store is the capability the oscillator needs from durable storage.
// Implementations are safe for concurrent use.
type Store interface {
	GetInt(key string) (int64, error)
	SetInt(key string, value int64) error
	GetBlob(key string) ([]byte, error)
	SetBlob(key string, value []byte) error
	Erase(key string) error
	Commit() error
}

// Memory keeps everything in maps. Commit is a no-op unless FailCommit is
// set, which lets callers exercise storage failures.
type Memory struct {
	mu      sync.Mutex
	scalars map[string]int64
	blobs   map[string][]byte
	commits int

	// FailCommit, when non-nil, is returned by every Commit.
	FailCommit error
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		scalars: make(map[string]int64),
		blobs:   make(map[string][]byte),
	}
}

func (m *Memory) GetInt(key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.scalars[key]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (m *Memory) SetInt(key string, value int64) error {
	m.mu.Lock()
	m.scalars[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetBlob(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) SetBlob(key string, value []byte) error {
	m.mu.Lock()
	m.blobs[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Erase(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, inScalars := m.scalars[key]
	_, inBlobs := m.blobs[key]
	if !inScalars && !inBlobs {
		return ErrNotFound
	}
	delete(m.scalars, key)
	delete(m.blobs, key)
	return nil
}

func (m *Memory) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCommit != nil {
		return m.FailCommit
	}
	m.commits++
	return nil
}

// Commits returns how many successful commits happened.
func (m *Memory) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}
