package cache

import (
	"context"
	"sync"
	"time"

	"github.com/aouyang1/go-liftchart/dataset"
)

type entry struct {
	joined  *dataset.Joined
	expires time.Time
}

// Memory is a process local cache. Entries expire ttl after they were set, a ttl of 0 keeps
// them for the life of the process.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	nowFunc func() time.Time
	entries map[Key]entry
}

// NewMemory returns an empty memory cache.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		nowFunc: time.Now,
		entries: make(map[Key]entry),
	}
}

// Get returns a copy of the cached table so callers cannot mutate the shared rows.
func (m *Memory) Get(_ context.Context, key Key) (*dataset.Joined, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.entries[key]
	if !exists {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && !m.nowFunc().Before(e.expires) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	return e.joined.Copy(), nil
}

func (m *Memory) Set(_ context.Context, key Key, joined *dataset.Joined) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{joined: joined.Copy()}
	if m.ttl > 0 {
		e.expires = m.nowFunc().Add(m.ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Invalidate(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries including any not yet evicted expired ones.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
