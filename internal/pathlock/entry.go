package pathlock

import "sync"

// lockEntry is a single path's or a single path's data's read/write lock,
// plus a waiter count used to decide whether the entry can be reclaimed.
//
// waiters is protected by the owning lockTable's mutex, never by mu itself;
// it tracks goroutines that have registered an interest in mu (about to
// block on it or currently holding it), so that reclamation never removes
// an entry a concurrent acquirer is already committed to.
type lockEntry struct {
	mu      sync.RWMutex
	waiters int
}

// lockTable is a mutex-guarded map from canonical path to lockEntry, with
// lazy allocation and eager reclamation. A single mutex around the whole
// map (the same shape as Minio's nsLockMap and cgofuse's mapPathLocker) is
// coarse only around the bookkeeping, never around the lock's wait itself.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

// acquire returns the entry for key, allocating it if absent, and records
// the caller's interest so reclamation cannot remove it out from under the
// caller before the caller has had a chance to lock it.
func (t *lockTable) acquire(key string) *lockEntry {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{}
		t.entries[key] = e
	}
	e.waiters++
	t.mu.Unlock()
	return e
}

// release drops the caller's interest in key's entry and, if no one else
// is holding or waiting on it, removes it from the map. The removal race
// is closed here: a concurrent acquirer calling
// acquire() must go through t.mu, so it either observes the entry (and
// increments waiters before release can decide to remove it) or observes
// its absence and allocates a fresh one — both outcomes are correct
// because the removed entry is provably idle at the moment of removal.
func (t *lockTable) release(key string, e *lockEntry) {
	t.mu.Lock()
	e.waiters--
	if e.waiters == 0 {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}

// len reports the number of allocated entries, for reclamation tests.
func (t *lockTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
