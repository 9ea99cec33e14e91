// Package session keeps short-lived, read-once flash messages for a browser
// session identified by the sid cookie.
package session

import (
	"context"
	"sync"
	"time"
)

// Store holds flash values per session id and key. Take removes the value
// it returns, so a value is observed at most once.
type Store interface {
	Set(ctx context.Context, sid, key, value string, ttl time.Duration) error
	Take(ctx context.Context, sid, key string) (string, bool, error)
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped lazily
// on access and by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func memoryKey(sid, key string) string {
	return sid + "\x00" + key
}

func (m *MemoryStore) Set(_ context.Context, sid, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoryKey(sid, key)] = memoryEntry{value: value, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Take(_ context.Context, sid, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(sid, key)
	e, ok := m.entries[k]
	if !ok {
		return "", false, nil
	}
	delete(m.entries, k)

	if !m.now().Before(e.expires) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}
