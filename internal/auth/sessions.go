package auth

import (
	"sync"
	"time"
)

type sessionEntry struct {
	authenticated bool
	expiresAt     time.Time
}

// sessionTable is the server-held side of the session cookie. Entries
// slide forward by ttl on every successful lookup.
type sessionTable struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]sessionEntry
}

func newSessionTable(ttl time.Duration) *sessionTable {
	return &sessionTable{ttl: ttl, items: make(map[string]sessionEntry)}
}

func (t *sessionTable) Get(id string, now time.Time) (sessionEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.items[id]
	if !ok {
		return sessionEntry{}, false
	}
	if !now.Before(entry.expiresAt) {
		delete(t.items, id)
		return sessionEntry{}, false
	}
	entry.expiresAt = now.Add(t.ttl)
	t.items[id] = entry
	return entry, true
}

func (t *sessionTable) Put(id string, authenticated bool, now time.Time) {
	t.mu.Lock()
	t.items[id] = sessionEntry{
		authenticated: authenticated,
		expiresAt:     now.Add(t.ttl),
	}
	t.mu.Unlock()
}

func (t *sessionTable) Delete(id string) {
	t.mu.Lock()
	delete(t.items, id)
	t.mu.Unlock()
}

// Sweep drops expired entries and reports how many were removed.
func (t *sessionTable) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, entry := range t.items {
		if !now.Before(entry.expiresAt) {
			delete(t.items, id)
			removed++
		}
	}
	return removed
}

func (t *sessionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}
