package gofusebridge

import (
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
)

func TestFileLockManager_Setlk_GrantsNonOverlappingWriteLocks(t *testing.T) {
	lm := newFileLockManager()

	errno := lm.Setlk("/a", 1, &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_WRLCK})
	assert.Zero(t, errno)

	errno = lm.Setlk("/a", 2, &fuse.FileLock{Start: 10, End: 20, Typ: syscall.F_WRLCK})
	assert.Zero(t, errno)
}

func TestFileLockManager_Setlk_RejectsOverlappingWriteLocks(t *testing.T) {
	lm := newFileLockManager()

	require := assert.New(t)
	require.Zero(lm.Setlk("/a", 1, &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_WRLCK}))
	require.Equal(syscall.EAGAIN, lm.Setlk("/a", 2, &fuse.FileLock{Start: 5, End: 15, Typ: syscall.F_WRLCK}))
}

func TestFileLockManager_Setlk_SameOwnerNeverConflicts(t *testing.T) {
	lm := newFileLockManager()

	assert.Zero(t, lm.Setlk("/a", 1, &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_WRLCK}))
	assert.Zero(t, lm.Setlk("/a", 1, &fuse.FileLock{Start: 5, End: 15, Typ: syscall.F_WRLCK}))
}

func TestFileLockManager_Getlk_ReportsConflictingLock(t *testing.T) {
	lm := newFileLockManager()
	require := assert.New(t)
	require.Zero(lm.Setlk("/a", 1, &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_WRLCK, Pid: 99}))

	out := &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_WRLCK}
	assert.Zero(t, lm.Getlk("/a", 2, out))
	assert.EqualValues(t, syscall.F_WRLCK, out.Typ)
	assert.EqualValues(t, 99, out.Pid)
}

func TestFileLockManager_Getlk_ReportsUnlockedWhenNoConflict(t *testing.T) {
	lm := newFileLockManager()
	out := &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_WRLCK}
	assert.Zero(t, lm.Getlk("/a", 1, out))
	assert.EqualValues(t, syscall.F_UNLCK, out.Typ)
}

func TestFileLockManager_Setlk_UnlockSplitsRange(t *testing.T) {
	lm := newFileLockManager()
	require := assert.New(t)
	require.Zero(lm.Setlk("/a", 1, &fuse.FileLock{Start: 0, End: 100, Typ: syscall.F_WRLCK}))

	require.Zero(lm.Setlk("/a", 1, &fuse.FileLock{Start: 40, End: 60, Typ: syscall.F_UNLCK}))

	assert.Len(t, lm.posixLocks["/a"], 2)

	// The gap [40,60) should now be free for another owner.
	assert.Zero(t, lm.Setlk("/a", 2, &fuse.FileLock{Start: 40, End: 60, Typ: syscall.F_WRLCK}))
}

func TestFileLockManager_ReadLocksCanCoexist(t *testing.T) {
	lm := newFileLockManager()
	require := assert.New(t)
	require.Zero(lm.Setlk("/a", 1, &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_RDLCK}))
	require.Zero(lm.Setlk("/a", 2, &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_RDLCK}))
}

func TestFileLockManager_Flock_SharedLocksCoexist(t *testing.T) {
	lm := newFileLockManager()
	assert.Zero(t, lm.Flock("/a", 1, syscall.LOCK_SH))
	assert.Zero(t, lm.Flock("/a", 2, syscall.LOCK_SH))
}

func TestFileLockManager_Flock_ExclusiveBlocksOthers(t *testing.T) {
	lm := newFileLockManager()
	require := assert.New(t)
	require.Zero(lm.Flock("/a", 1, syscall.LOCK_EX))

	assert.Equal(t, syscall.EWOULDBLOCK, lm.Flock("/a", 2, syscall.LOCK_EX|syscall.LOCK_NB))
}

func TestFileLockManager_Flock_UpgradeSoleSharedOwnerToExclusive(t *testing.T) {
	lm := newFileLockManager()
	require := assert.New(t)
	require.Zero(lm.Flock("/a", 1, syscall.LOCK_SH))
	assert.Zero(t, lm.Flock("/a", 1, syscall.LOCK_EX))
}

func TestFileLockManager_Flock_UnlockReleasesOwner(t *testing.T) {
	lm := newFileLockManager()
	require := assert.New(t)
	require.Zero(lm.Flock("/a", 1, syscall.LOCK_EX))
	require.Zero(lm.Flock("/a", 1, syscall.LOCK_UN))

	assert.Zero(t, lm.Flock("/a", 2, syscall.LOCK_EX))
}

func TestFileLockManager_ReleaseOwner_DropsAllLocks(t *testing.T) {
	lm := newFileLockManager()
	require := assert.New(t)
	require.Zero(lm.Setlk("/a", 1, &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_WRLCK}))
	require.Zero(lm.Flock("/b", 1, syscall.LOCK_EX))

	lm.ReleaseOwner(1)

	assert.Zero(t, lm.Setlk("/a", 2, &fuse.FileLock{Start: 0, End: 10, Typ: syscall.F_WRLCK}))
	assert.Zero(t, lm.Flock("/b", 2, syscall.LOCK_EX))
}

func TestFileLockManager_RangesOverlap(t *testing.T) {
	lm := newFileLockManager()
	assert.True(t, lm.rangesOverlap(0, 10, 5, 15))
	assert.False(t, lm.rangesOverlap(0, 10, 10, 20))
	assert.True(t, lm.rangesOverlap(0, ^uint64(0), 1000, 2000))
}
