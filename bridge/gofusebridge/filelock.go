package gofusebridge

import (
	"context"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// fileLockManager tracks BSD flock and POSIX byte-range locks requested
// by applications through fcntl/flock on an open handle. These are
// userspace lock semantics visible to callers of the mounted filesystem —
// independent of, and orthogonal to, bridge.Core's internal path/data
// locks, which protect the adapter's own critical sections rather than
// anything an application asked for.
type fileLockManager struct {
	mu sync.RWMutex

	flocks     map[string]*flockState
	posixLocks map[string][]*posixLock
}

type flockState struct {
	lockType uint32
	owners   map[uint64]bool
}

type posixLock struct {
	owner uint64
	start uint64
	end   uint64
	typ   uint32
	pid   uint32
}

func newFileLockManager() *fileLockManager {
	return &fileLockManager{
		flocks:     make(map[string]*flockState),
		posixLocks: make(map[string][]*posixLock),
	}
}

func (lm *fileLockManager) Getlk(path string, owner uint64, lk *fuse.FileLock) syscall.Errno {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	for _, lock := range lm.posixLocks[path] {
		if lock.owner == owner {
			continue
		}
		if lm.rangesOverlap(lk.Start, lk.End, lock.start, lock.end) &&
			(lk.Typ == syscall.F_WRLCK || lock.typ == syscall.F_WRLCK) {
			lk.Typ, lk.Start, lk.End, lk.Pid = lock.typ, lock.start, lock.end, lock.pid
			return 0
		}
	}
	lk.Typ = syscall.F_UNLCK
	return 0
}

func (lm *fileLockManager) Setlk(path string, owner uint64, lk *fuse.FileLock) syscall.Errno {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lk.Typ == syscall.F_UNLCK {
		return lm.unlockPosixLocked(path, owner, lk)
	}

	for _, lock := range lm.posixLocks[path] {
		if lock.owner == owner {
			continue
		}
		if lm.rangesOverlap(lk.Start, lk.End, lock.start, lock.end) &&
			(lk.Typ == syscall.F_WRLCK || lock.typ == syscall.F_WRLCK) {
			return syscall.EAGAIN
		}
	}

	lm.posixLocks[path] = append(lm.posixLocks[path], &posixLock{
		owner: owner, start: lk.Start, end: lk.End, typ: lk.Typ, pid: lk.Pid,
	})
	return 0
}

// Setlkw is the blocking variant; FUSE itself doesn't block kernel-side
// for F_SETLKW, it retries on EAGAIN, so this is identical to Setlk.
func (lm *fileLockManager) Setlkw(path string, owner uint64, lk *fuse.FileLock) syscall.Errno {
	return lm.Setlk(path, owner, lk)
}

func (lm *fileLockManager) unlockPosixLocked(path string, owner uint64, lk *fuse.FileLock) syscall.Errno {
	locks := lm.posixLocks[path]
	if locks == nil {
		return 0
	}

	kept := make([]*posixLock, 0, len(locks))
	for _, lock := range locks {
		if lock.owner != owner || !lm.rangesOverlap(lk.Start, lk.End, lock.start, lock.end) {
			kept = append(kept, lock)
			continue
		}
		if lock.start < lk.Start {
			kept = append(kept, &posixLock{owner: lock.owner, start: lock.start, end: lk.Start, typ: lock.typ, pid: lock.pid})
		}
		if lock.end > lk.End {
			kept = append(kept, &posixLock{owner: lock.owner, start: lk.End, end: lock.end, typ: lock.typ, pid: lock.pid})
		}
	}

	if len(kept) == 0 {
		delete(lm.posixLocks, path)
	} else {
		lm.posixLocks[path] = kept
	}
	return 0
}

func (lm *fileLockManager) Flock(path string, owner uint64, flags uint32) syscall.Errno {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if flags&syscall.LOCK_UN != 0 {
		return lm.flockUnlockLocked(path, owner)
	}

	requested := uint32(syscall.LOCK_SH)
	if flags&syscall.LOCK_EX != 0 {
		requested = syscall.LOCK_EX
	}

	state, exists := lm.flocks[path]
	if !exists {
		lm.flocks[path] = &flockState{lockType: requested, owners: map[uint64]bool{owner: true}}
		return 0
	}

	if state.owners[owner] {
		switch {
		case requested == state.lockType:
			return 0
		case requested == syscall.LOCK_EX && state.lockType == syscall.LOCK_SH:
			if len(state.owners) == 1 {
				state.lockType = syscall.LOCK_EX
				return 0
			}
			if flags&syscall.LOCK_NB != 0 {
				return syscall.EWOULDBLOCK
			}
			return syscall.EAGAIN
		case requested == syscall.LOCK_SH && state.lockType == syscall.LOCK_EX:
			state.lockType = syscall.LOCK_SH
			return 0
		}
		return 0
	}

	if state.lockType == syscall.LOCK_EX {
		if flags&syscall.LOCK_NB != 0 {
			return syscall.EWOULDBLOCK
		}
		return syscall.EAGAIN
	}
	if requested == syscall.LOCK_SH {
		state.owners[owner] = true
		return 0
	}
	if flags&syscall.LOCK_NB != 0 {
		return syscall.EWOULDBLOCK
	}
	return syscall.EAGAIN
}

func (lm *fileLockManager) flockUnlockLocked(path string, owner uint64) syscall.Errno {
	state, exists := lm.flocks[path]
	if !exists {
		return 0
	}
	delete(state.owners, owner)
	if len(state.owners) == 0 {
		delete(lm.flocks, path)
	}
	return 0
}

// ReleaseOwner drops every lock an owner (a file handle id) held, called
// when the handle is released so locks don't outlive the descriptor.
func (lm *fileLockManager) ReleaseOwner(owner uint64) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for path, state := range lm.flocks {
		delete(state.owners, owner)
		if len(state.owners) == 0 {
			delete(lm.flocks, path)
		}
	}
	for path, locks := range lm.posixLocks {
		kept := make([]*posixLock, 0, len(locks))
		for _, lock := range locks {
			if lock.owner != owner {
				kept = append(kept, lock)
			}
		}
		if len(kept) == 0 {
			delete(lm.posixLocks, path)
		} else {
			lm.posixLocks[path] = kept
		}
	}
}

func (lm *fileLockManager) rangesOverlap(start1, end1, start2, end2 uint64) bool {
	if end1 == ^uint64(0) {
		end1 = ^uint64(0)
	}
	if end2 == ^uint64(0) {
		end2 = ^uint64(0)
	}
	return start1 < end2 && start2 < end1
}

// Getlk implements F_GETLK for a held file handle.
func (fh *fileHandle) Getlk(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32, out *fuse.FileLock) syscall.Errno {
	*out = *lk
	return fh.node.fs.locks.Getlk(fh.node.path, owner, out)
}

// Setlk implements F_SETLK for a held file handle.
func (fh *fileHandle) Setlk(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32) syscall.Errno {
	return fh.node.fs.locks.Setlk(fh.node.path, owner, lk)
}

// Setlkw implements F_SETLKW for a held file handle.
func (fh *fileHandle) Setlkw(ctx context.Context, owner uint64, lk *fuse.FileLock, flags uint32) syscall.Errno {
	return fh.node.fs.locks.Setlkw(fh.node.path, owner, lk)
}

// Flock implements BSD flock for a held file handle.
func (fh *fileHandle) Flock(ctx context.Context, owner uint64, flags uint32) syscall.Errno {
	return fh.node.fs.locks.Flock(fh.node.path, owner, flags)
}
