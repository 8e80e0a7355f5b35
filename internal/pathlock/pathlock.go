package pathlock

import (
	"fmt"
	"sort"
)

// Manager is the hierarchical path-lock manager described by this
// package's doc comment: a pair of disjoint concurrent maps (path-locks,
// data-locks), each lazily allocated and eagerly reclaimed.
type Manager struct {
	paths *lockTable
	data  *lockTable
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{paths: newLockTable(), data: newLockTable()}
}

// held is one entry this goroutine currently holds, recorded so Release
// can unwind it: unlock the rwmutex, then drop the waiter interest.
type held struct {
	key   string
	table *lockTable
	entry *lockEntry
	write bool
}

func (h held) release() {
	if h.write {
		h.entry.mu.Unlock()
	} else {
		h.entry.mu.RUnlock()
	}
	h.table.release(h.key, h.entry)
}

// PathScope is the scope handle returned by LockPathForReading and
// LockPathForWriting. Release unwinds every lock it holds — the target
// lock first, then ancestors leaf-to-root — exactly mirroring the
// root-to-leaf acquisition order. Calling Release more than once, or out
// of LIFO order with respect to a nested DataScope, is undefined.
type PathScope struct {
	manager *Manager
	path    Path
	write   bool
	chain   []held // root-to-leaf ancestors, then target, in acquisition order
}

// lockPath climbs every
// proper ancestor of p in root-to-leaf order taking a read-lock, then takes
// the requested lock on p itself. Ancestor order is the deadlock-freedom
// invariant — every concurrent acquirer climbs in the same direction, so
// no cycle can form among read-locks, and only the leaf locks (acquired
// last, released first) can ever contend for exclusivity.
func (m *Manager) lockPath(p Path, write bool) *PathScope {
	scope := &PathScope{manager: m, path: p, write: write}
	scope.chain = append(scope.chain, lockAncestors(m, p)...)
	scope.chain = append(scope.chain, lockTarget(m, p, write))
	return scope
}

// lockAncestors takes a read-lock on every proper ancestor of p, root to
// leaf, and returns the held entries in acquisition order.
func lockAncestors(m *Manager, p Path) []held {
	chain := make([]held, 0, len(p.components))
	for _, ancestor := range p.Ancestors() {
		key := ancestor.String()
		entry := m.paths.acquire(key)
		entry.mu.RLock()
		chain = append(chain, held{key: key, table: m.paths, entry: entry, write: false})
	}
	return chain
}

// lockTarget takes the requested lock on p itself, without touching any
// ancestor.
func lockTarget(m *Manager, p Path, write bool) held {
	key := p.String()
	entry := m.paths.acquire(key)
	if write {
		entry.mu.Lock()
	} else {
		entry.mu.RLock()
	}
	return held{key: key, table: m.paths, entry: entry, write: write}
}

// LockPathForReading acquires a read-lock on p's path-lock, with
// read-locks held on every ancestor of p.
func (m *Manager) LockPathForReading(p Path) *PathScope {
	return m.lockPath(p, false)
}

// LockPathForWriting acquires a write-lock on p's path-lock, with
// read-locks held on every ancestor of p.
func (m *Manager) LockPathForWriting(p Path) *PathScope {
	return m.lockPath(p, true)
}

// Path returns the path this scope was locked for.
func (s *PathScope) Path() Path { return s.path }

// IsWrite reports whether the target lock in this scope is a write-lock.
func (s *PathScope) IsWrite() bool { return s.write }

// Release drops every lock this scope holds, target first (LIFO), then
// ancestors leaf-to-root. Reclamation runs as each release happens.
func (s *PathScope) Release() {
	for i := len(s.chain) - 1; i >= 0; i-- {
		s.chain[i].release()
	}
	s.chain = nil
}

// DataScope is the scope handle returned by LockDataForReading and
// LockDataForWriting. It may only be obtained from a live PathScope, which
// is how this package enforces the "path currently path-locked by this
// thread" precondition on the two data-lock operations.
type DataScope struct {
	h held
}

// LockDataForReading acquires a read-lock on this scope's path's
// data-lock. The caller must still hold the receiving PathScope.
func (s *PathScope) LockDataForReading() *DataScope {
	return s.lockData(false)
}

// LockDataForWriting acquires a write-lock on this scope's path's
// data-lock. The caller must still hold the receiving PathScope.
func (s *PathScope) LockDataForWriting() *DataScope {
	return s.lockData(true)
}

func (s *PathScope) lockData(write bool) *DataScope {
	key := s.path.String()
	entry := s.manager.data.acquire(key)
	if write {
		entry.mu.Lock()
	} else {
		entry.mu.RLock()
	}
	return &DataScope{h: held{key: key, table: s.manager.data, entry: entry, write: write}}
}

// Release drops the data-lock.
func (d *DataScope) Release() {
	if d == nil {
		return
	}
	d.h.release()
}

// RenameScope holds the two write-locked paths (and their data-locks)
// required by a rename, acquired in canonical lexicographic order so that
// any two concurrent cross-renames make progress.
type RenameScope struct {
	ancestors     []held // shared ancestor read-locks, acquired exactly once each
	first, second *PathScope
	firstData     *DataScope
	secondData    *DataScope
	src, dst      *PathScope
	srcData       *DataScope
	dstData       *DataScope
}

// ErrRenameIntoDescendant is returned by LockRename when dst names a
// descendant of src (or vice versa): locking both would require this
// goroutine to read-lock a path it already write-locks while climbing the
// other path's ancestor chain, which self-deadlocks. POSIX rename already
// rejects this case (EINVAL, "new pathname contains a path prefix of
// old"), so it is rejected here before any lock is taken rather than
// handled by the lock manager.
var ErrRenameIntoDescendant = fmt.Errorf("pathlock: rename target is an ancestor or descendant of source")

// LockRename acquires write-locks (and write data-locks) on src and dst in
// lexicographic component-sequence order, so that any two threads racing
// to rename src→dst and dst→src acquire the same two locks in the same
// order and neither can deadlock the other.
//
// src and dst generally share ancestors (at minimum the root). Locking each
// path independently via LockPathForWriting would climb both full ancestor
// chains and, for any ancestor common to both, read-lock the same
// lockEntry twice from this goroutine without releasing in between —
// sync.RWMutex explicitly forbids recursive read-locking, since a writer
// arriving on that ancestor between the two RLocks would block waiting for
// a read-hold this goroutine can never complete. LockRename instead
// computes the union of both ancestor chains and takes each one's
// read-lock exactly once, then write-locks src and dst themselves.
func (m *Manager) LockRename(src, dst Path) (*RenameScope, error) {
	if isAncestorOrSame(src, dst) || isAncestorOrSame(dst, src) {
		return nil, ErrRenameIntoDescendant
	}

	firstPath, secondPath := src, dst
	if dst.Less(src) {
		firstPath, secondPath = dst, src
	}

	ancestors := unionAncestors(firstPath, secondPath)
	chain := make([]held, 0, len(ancestors))
	for _, ancestor := range ancestors {
		key := ancestor.String()
		entry := m.paths.acquire(key)
		entry.mu.RLock()
		chain = append(chain, held{key: key, table: m.paths, entry: entry, write: false})
	}

	first := &PathScope{manager: m, path: firstPath, write: true, chain: []held{lockTarget(m, firstPath, true)}}
	second := &PathScope{manager: m, path: secondPath, write: true, chain: []held{lockTarget(m, secondPath, true)}}
	firstData := first.LockDataForWriting()
	secondData := second.LockDataForWriting()

	rs := &RenameScope{ancestors: chain, first: first, second: second, firstData: firstData, secondData: secondData}
	if firstPath.Equal(src) {
		rs.src, rs.dst = first, second
		rs.srcData, rs.dstData = firstData, secondData
	} else {
		rs.src, rs.dst = second, first
		rs.srcData, rs.dstData = secondData, firstData
	}
	return rs, nil
}

// unionAncestors merges a's and b's proper ancestor chains into a single
// deduplicated list, ordered root to leaf (by depth, then lexicographically
// within a depth) so that it can be climbed in the same direction every
// other acquirer already climbs in.
func unionAncestors(a, b Path) []Path {
	byKey := make(map[string]Path)
	for _, p := range a.Ancestors() {
		byKey[p.String()] = p
	}
	for _, p := range b.Ancestors() {
		byKey[p.String()] = p
	}

	merged := make([]Path, 0, len(byKey))
	for _, p := range byKey {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool {
		if len(merged[i].components) != len(merged[j].components) {
			return len(merged[i].components) < len(merged[j].components)
		}
		return merged[i].Less(merged[j])
	})
	return merged
}

func isAncestorOrSame(ancestor, p Path) bool {
	if ancestor.Equal(p) {
		return true
	}
	for parent, ok := p.Parent(); ok; parent, ok = parent.Parent() {
		if parent.Equal(ancestor) {
			return true
		}
	}
	return false
}

// Release unwinds the rename's locks in strict LIFO order: data-locks
// before target path-locks, the second-acquired target before the first,
// and the shared ancestor read-locks last, leaf to root.
func (rs *RenameScope) Release() {
	rs.secondData.Release()
	rs.firstData.Release()
	rs.second.Release()
	rs.first.Release()
	for i := len(rs.ancestors) - 1; i >= 0; i-- {
		rs.ancestors[i].release()
	}
}

// Stats exposes the live entry counts of both maps, used by reclamation
// tests to confirm the manager returns to empty once quiesced.
type Stats struct {
	PathEntries int
	DataEntries int
}

func (m *Manager) Stats() Stats {
	return Stats{PathEntries: m.paths.len(), DataEntries: m.data.len()}
}
