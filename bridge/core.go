// Package bridge implements the AdapterBridge: the thin layer that sits
// between a native FUSE upcall dispatcher and the abstract filesystem it
// exposes. Core holds the one piece of policy this layer owns — which
// path/data locks a given upcall must acquire — and otherwise delegates
// to an absfs.FileSystem. Everything
// backend-specific (go-fuse's fs.Inode tree, cgofuse's FileSystemInterface)
// lives in a sibling package (gofusebridge, cgofusebridge) that calls
// these methods and translates the result into its own wire types.
package bridge

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/absfs/absfs"

	"github.com/nio-adapter/nio-fuse/internal/pathlock"
)

// Options configures a Core.
type Options struct {
	ReadOnly           bool
	DefaultPermissions bool
}

// Core is the backend-agnostic half of the AdapterBridge. One Core backs
// exactly one mounted filesystem; it is pinned for the mount's duration so
// that native callbacks (raw function pointers with an opaque context)
// can always recover it.
type Core struct {
	FS      absfs.FileSystem
	Opts    Options
	Locks   *pathlock.Manager
	Handles *HandleTracker
	stats   *statsCollector

	unmounting atomic.Bool
}

// NewCore constructs a Core around a delegate filesystem.
func NewCore(fs absfs.FileSystem, opts Options) *Core {
	return &Core{
		FS:      fs,
		Opts:    opts,
		Locks:   pathlock.New(),
		Handles: NewHandleTracker(),
		stats:   newStatsCollector(),
	}
}

// MarkUnmounting flips the core into a mode where the path-based upcalls
// (Lookup, Getattr, Readdir, Statfs, Open, Truncate, Create, Mkdir, Unlink,
// Rmdir, Rename, Access) refuse with ENOTCONN; the handle-based Read,
// Write, Fsync and Release and the xattr calls do not check it.
// cgofusebridge's NativeMount.Unmount calls it as teardown begins.
func (c *Core) MarkUnmounting() { c.unmounting.Store(true) }

// Unmounting reports whether MarkUnmounting has been called.
func (c *Core) Unmounting() bool { return c.unmounting.Load() }

// InUse reports whether the adapter currently has open file handles; this
// is the "in use" check backing UnmountRefusedError.
func (c *Core) InUse() bool { return c.Handles.Count() > 0 }

// Shutdown releases every resource the core owns. Called from each
// backend's NativeMount.Release, which mountlib.Handle invokes after its
// native unmount call returns.
func (c *Core) Shutdown() { c.Handles.CloseAll() }

// Stats returns a snapshot of operation counters.
func (c *Core) Stats() Stats {
	snap := c.stats.snapshot()
	snap.OpenFiles = c.Handles.Count()
	return snap
}

func join(parent, name string) string {
	if name == "" {
		return parent
	}
	return filepath.Join(parent, name)
}

// --- read-only, single-path upcalls: lookup, getattr, readdir, statfs ---

// Lookup stats path under a read-on-target path-lock.
func (c *Core) Lookup(path string) (os.FileInfo, syscall.Errno) {
	c.stats.recordOperation()
	if c.Unmounting() {
		return nil, syscall.ENOTCONN
	}
	scope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer scope.Release()

	info, err := c.FS.Stat(path)
	if err != nil {
		c.stats.recordError()
		return nil, MapError(err)
	}
	return info, 0
}

// Getattr is Lookup's sibling for an already-resolved node.
func (c *Core) Getattr(path string) (os.FileInfo, syscall.Errno) {
	return c.Lookup(path)
}

// Readdir lists path's children under a read-on-target path-lock.
func (c *Core) Readdir(path string) ([]os.FileInfo, syscall.Errno) {
	c.stats.recordOperation()
	if c.Unmounting() {
		return nil, syscall.ENOTCONN
	}
	scope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer scope.Release()

	dir, err := c.FS.Open(path)
	if err != nil {
		c.stats.recordError()
		return nil, MapError(err)
	}
	defer dir.Close()

	infos, err := dir.Readdir(-1)
	if err != nil {
		c.stats.recordError()
		return nil, MapError(err)
	}
	return infos, 0
}

// Statfs reads filesystem-level stats under a read-on-target path-lock.
// The delegate is consulted through the optional StatFSer interface;
// filesystems that don't implement it get virtual-filesystem defaults.
func (c *Core) Statfs(path string) (total, free, avail, totalInodes, freeInodes uint64, blockSize, nameMax uint32, errno syscall.Errno) {
	c.stats.recordOperation()
	if c.Unmounting() {
		return 0, 0, 0, 0, 0, 0, 0, syscall.ENOTCONN
	}
	scope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer scope.Release()

	if sf, ok := c.FS.(StatFSer); ok {
		t, f, a, ti, fi, bs, nm, err := sf.StatFS()
		if err != nil {
			c.stats.recordError()
			return 0, 0, 0, 0, 0, 0, 0, MapError(err)
		}
		return t, f, a, ti, fi, bs, nm, 0
	}
	return 1 << 30, 1 << 30, 1 << 30, 1 << 20, 1 << 20, 4096, 255, 0
}

// --- open/read: read on target, read on target's data ---

// Open opens path under a read-path/read-data lock pair and registers the
// resulting absfs.File with the handle tracker.
func (c *Core) Open(path string, flags int) (fh uint64, errno syscall.Errno) {
	c.stats.recordOperation()
	if c.Unmounting() {
		return 0, syscall.ENOTCONN
	}
	pathScope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer pathScope.Release()
	dataScope := pathScope.LockDataForReading()
	defer dataScope.Release()

	file, err := c.FS.OpenFile(path, flags, 0)
	if err != nil {
		c.stats.recordError()
		return 0, MapError(err)
	}
	return c.Handles.Add(file, flags, path), 0
}

// Read reads from an open handle under a read-data lock on its path.
func (c *Core) Read(fh uint64, dest []byte, off int64) (n int, errno syscall.Errno) {
	c.stats.recordOperation()
	path := c.Handles.Path(fh)
	file := c.Handles.Get(fh)
	if file == nil {
		c.stats.recordError()
		return 0, syscall.EBADF
	}

	pathScope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer pathScope.Release()
	dataScope := pathScope.LockDataForReading()
	defer dataScope.Release()

	if seeker, ok := file.(io.Seeker); ok {
		if _, err := seeker.Seek(off, io.SeekStart); err != nil {
			c.stats.recordError()
			return 0, MapError(err)
		}
	}
	n, err := file.Read(dest)
	if err != nil && err != io.EOF {
		c.stats.recordError()
		return 0, MapError(err)
	}
	c.stats.recordRead(n)
	return n, 0
}

// --- write/truncate/fsync: read on target, write on target's data ---

// Write writes to an open handle under a write-data lock on its path.
func (c *Core) Write(fh uint64, data []byte, off int64) (n int, errno syscall.Errno) {
	c.stats.recordOperation()
	path := c.Handles.Path(fh)
	file := c.Handles.Get(fh)
	if file == nil {
		c.stats.recordError()
		return 0, syscall.EBADF
	}

	pathScope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer pathScope.Release()
	dataScope := pathScope.LockDataForWriting()
	defer dataScope.Release()

	if seeker, ok := file.(io.Seeker); ok {
		if _, err := seeker.Seek(off, io.SeekStart); err != nil {
			c.stats.recordError()
			return 0, MapError(err)
		}
	}
	n, err := file.Write(data)
	if err != nil {
		c.stats.recordError()
		return 0, MapError(err)
	}
	c.stats.recordWrite(n)
	return n, 0
}

// Truncate resizes path under a write-data lock on it.
func (c *Core) Truncate(path string, size int64) syscall.Errno {
	c.stats.recordOperation()
	if c.Unmounting() {
		return syscall.ENOTCONN
	}
	pathScope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer pathScope.Release()
	dataScope := pathScope.LockDataForWriting()
	defer dataScope.Release()

	truncater, ok := c.FS.(interface {
		Truncate(string, int64) error
	})
	if !ok {
		return syscall.ENOTSUP
	}
	if err := truncater.Truncate(path, size); err != nil {
		c.stats.recordError()
		return MapError(err)
	}
	return 0
}

// Fsync flushes an open handle's writes under a write-data lock.
func (c *Core) Fsync(fh uint64) syscall.Errno {
	c.stats.recordOperation()
	path := c.Handles.Path(fh)
	file := c.Handles.Get(fh)
	if file == nil {
		return syscall.EBADF
	}

	pathScope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer pathScope.Release()
	dataScope := pathScope.LockDataForWriting()
	defer dataScope.Release()

	if syncer, ok := file.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			c.stats.recordError()
			return MapError(err)
		}
	}
	return 0
}

// Release drops an open handle, unconditionally closing the underlying
// absfs.File once its reference count reaches zero.
func (c *Core) Release(fh uint64) syscall.Errno {
	c.stats.recordOperation()
	return c.Handles.Release(fh)
}

// --- create/mkdir/unlink/rmdir: write on parent, then read on target ---

// Create makes and opens a new file under parent, under a write-lock on
// parent followed by a read-lock on the target, then a write-data lock
// since the new file is content-bearing.
func (c *Core) Create(parent, name string, flags int, mode os.FileMode) (fh uint64, info os.FileInfo, errno syscall.Errno) {
	c.stats.recordOperation()
	if c.Unmounting() {
		return 0, nil, syscall.ENOTCONN
	}
	full := join(parent, name)

	parentScope := c.Locks.LockPathForWriting(pathlock.NewPath(parent))
	defer parentScope.Release()
	targetScope := c.Locks.LockPathForReading(pathlock.NewPath(full))
	defer targetScope.Release()
	dataScope := targetScope.LockDataForWriting()
	defer dataScope.Release()

	file, err := c.FS.OpenFile(full, flags|os.O_CREATE, mode)
	if err != nil {
		c.stats.recordError()
		return 0, nil, MapError(err)
	}
	info, err = c.FS.Stat(full)
	if err != nil {
		file.Close()
		c.stats.recordError()
		return 0, nil, MapError(err)
	}
	return c.Handles.Add(file, flags, full), info, 0
}

// Mkdir creates a directory under a write-on-parent/read-on-target pair.
// Directories aren't content-bearing, so no data-lock is taken.
func (c *Core) Mkdir(parent, name string, mode os.FileMode) (os.FileInfo, syscall.Errno) {
	c.stats.recordOperation()
	if c.Unmounting() {
		return nil, syscall.ENOTCONN
	}
	full := join(parent, name)

	parentScope := c.Locks.LockPathForWriting(pathlock.NewPath(parent))
	defer parentScope.Release()
	targetScope := c.Locks.LockPathForReading(pathlock.NewPath(full))
	defer targetScope.Release()

	if err := c.FS.Mkdir(full, mode); err != nil {
		c.stats.recordError()
		return nil, MapError(err)
	}
	info, err := c.FS.Stat(full)
	if err != nil {
		c.stats.recordError()
		return nil, MapError(err)
	}
	return info, 0
}

// Unlink removes a file under a write-on-parent/write-on-target-data pair.
func (c *Core) Unlink(parent, name string) syscall.Errno {
	c.stats.recordOperation()
	if c.Unmounting() {
		return syscall.ENOTCONN
	}
	full := join(parent, name)

	parentScope := c.Locks.LockPathForWriting(pathlock.NewPath(parent))
	defer parentScope.Release()
	targetScope := c.Locks.LockPathForReading(pathlock.NewPath(full))
	defer targetScope.Release()
	dataScope := targetScope.LockDataForWriting()
	defer dataScope.Release()

	if err := c.FS.Remove(full); err != nil {
		c.stats.recordError()
		return MapError(err)
	}
	return 0
}

// Rmdir removes a directory under a write-on-parent/read-on-target pair.
func (c *Core) Rmdir(parent, name string) syscall.Errno {
	c.stats.recordOperation()
	if c.Unmounting() {
		return syscall.ENOTCONN
	}
	full := join(parent, name)

	parentScope := c.Locks.LockPathForWriting(pathlock.NewPath(parent))
	defer parentScope.Release()
	targetScope := c.Locks.LockPathForReading(pathlock.NewPath(full))
	defer targetScope.Release()

	if err := c.FS.Remove(full); err != nil {
		c.stats.recordError()
		return MapError(err)
	}
	return 0
}

// --- rename: write on both paths, acquired in canonical order ---

// Rename moves src to dst. Both paths are write-locked (path and data) in
// the lexicographic order internal/pathlock.Manager.LockRename enforces,
// so that two threads racing src->dst and dst->src can never deadlock.
func (c *Core) Rename(src, dst string) syscall.Errno {
	c.stats.recordOperation()
	if c.Unmounting() {
		return syscall.ENOTCONN
	}

	scope, err := c.Locks.LockRename(pathlock.NewPath(src), pathlock.NewPath(dst))
	if err != nil {
		c.stats.recordError()
		return syscall.EINVAL
	}
	defer scope.Release()

	if err := c.FS.Rename(src, dst); err != nil {
		c.stats.recordError()
		return MapError(err)
	}
	return 0
}

// --- ambient permission check, read on target ---

// Access checks mask against path's mode under a read-on-target lock.
func (c *Core) Access(path string, callerUID, callerGID uint32, mask uint32) syscall.Errno {
	c.stats.recordOperation()
	if c.Opts.DefaultPermissions {
		return 0
	}
	if c.Unmounting() {
		return syscall.ENOTCONN
	}
	scope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer scope.Release()

	info, err := c.FS.Stat(path)
	if err != nil {
		c.stats.recordError()
		return MapError(err)
	}
	return CheckAccess(info, callerUID, callerGID, mask)
}

// --- extended attributes: treated like getattr/setattr for locking ---

// GetXAttr reads an extended attribute under a read-on-target lock.
func (c *Core) GetXAttr(path, name string) ([]byte, syscall.Errno) {
	c.stats.recordOperation()
	xfs, ok := c.FS.(XAttrFS)
	if !ok {
		return nil, syscall.ENOTSUP
	}
	scope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer scope.Release()

	value, err := xfs.GetXAttr(path, name)
	if err != nil {
		c.stats.recordError()
		return nil, MapError(err)
	}
	return value, 0
}

// SetXAttr writes an extended attribute under a write-on-target lock.
func (c *Core) SetXAttr(path, name string, value []byte, flags int) syscall.Errno {
	c.stats.recordOperation()
	xfs, ok := c.FS.(XAttrFS)
	if !ok {
		return syscall.ENOTSUP
	}
	scope := c.Locks.LockPathForWriting(pathlock.NewPath(path))
	defer scope.Release()

	if err := xfs.SetXAttr(path, name, value, flags); err != nil {
		c.stats.recordError()
		return MapError(err)
	}
	return 0
}

// ListXAttr lists extended attribute names under a read-on-target lock.
func (c *Core) ListXAttr(path string) ([]string, syscall.Errno) {
	c.stats.recordOperation()
	xfs, ok := c.FS.(XAttrFS)
	if !ok {
		return nil, syscall.ENOTSUP
	}
	scope := c.Locks.LockPathForReading(pathlock.NewPath(path))
	defer scope.Release()

	names, err := xfs.ListXAttr(path)
	if err != nil {
		c.stats.recordError()
		return nil, MapError(err)
	}
	return names, 0
}

// RemoveXAttr deletes an extended attribute under a write-on-target lock.
func (c *Core) RemoveXAttr(path, name string) syscall.Errno {
	c.stats.recordOperation()
	xfs, ok := c.FS.(XAttrFS)
	if !ok {
		return syscall.ENOTSUP
	}
	scope := c.Locks.LockPathForWriting(pathlock.NewPath(path))
	defer scope.Release()

	if err := xfs.RemoveXAttr(path, name); err != nil {
		c.stats.recordError()
		return MapError(err)
	}
	return 0
}
