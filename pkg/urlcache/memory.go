package urlcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type memoryEntry struct {
	expiresAt time.Time // zero means no expiry
	url       string
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a process-local cache with TTL expiry.
// Expired entries are dropped on read and by a background janitor.
type Memory struct {
	items      map[string]memoryEntry
	done       chan struct{}
	flight     singleflight.Group
	defaultTTL time.Duration
	mu         sync.RWMutex
	closed     bool
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	defaultTTL      time.Duration
	cleanupInterval time.Duration
}

// WithDefaultTTL sets the TTL used when Set receives zero. Default: DefaultTTL.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.defaultTTL = d
	}
}

// WithCleanupInterval sets how often the janitor sweeps expired entries.
// Zero disables the janitor. Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.cleanupInterval = d
	}
}

// NewMemory creates an in-memory URL cache.
func NewMemory(opts ...MemoryOption) *Memory {
	o := &memoryOptions{
		defaultTTL:      DefaultTTL,
		cleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}

	m := &Memory{
		items:      make(map[string]memoryEntry),
		done:       make(chan struct{}),
		defaultTTL: o.defaultTTL,
	}
	if o.cleanupInterval > 0 {
		go m.janitor(o.cleanupInterval)
	}
	return m
}

// Get returns the URL stored under key, or ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return "", ErrNotFound
	}
	return e.url, nil
}

// Set stores url under key.
func (m *Memory) Set(_ context.Context, key, url string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if ttl == 0 {
		ttl = m.defaultTTL
	}
	e := memoryEntry{url: url}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.items[key] = e
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the janitor. Close is idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory) group() *singleflight.Group {
	return &m.flight
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.deleteExpired(now)
		}
	}
}

func (m *Memory) deleteExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, e := range m.items {
		if e.expired(now) {
			delete(m.items, k)
		}
	}
}

var _ Cache = (*Memory)(nil)
