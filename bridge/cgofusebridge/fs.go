// Package cgofusebridge adapts bridge.Core to github.com/winfsp/cgofuse's
// fuse.FileSystemInterface, the native library interface used for
// the macOS FUSE-T and Windows WinFsp backends (both are driven through
// cgofuse's libfuse-compatible C shim). As with gofusebridge, all locking
// policy lives in bridge.Core; this package only translates between
// Core's plain-Go types and cgofuse's C-flavored wire types (fuse.Stat_t,
// negative-errno return codes).
package cgofusebridge

import (
	"os"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/nio-adapter/nio-fuse/bridge"
)

// Options configures a mounted cgofusebridge.FS.
type Options struct {
	UID, GID           uint32
	DefaultPermissions bool
}

// FS implements fuse.FileSystemInterface by delegating every upcall's
// locking and I/O to a bridge.Core, embedding fuse.FileSystemBase so
// upcalls this backend doesn't supplement (ioctl, bmap, poll) fall back
// to cgofuse's -ENOSYS defaults.
type FS struct {
	fuse.FileSystemBase

	Core *bridge.Core
	opts Options

	unmounting atomic.Bool
}

// New constructs a cgofusebridge.FS around an already-built bridge.Core.
func New(core *bridge.Core, opts Options) *FS {
	return &FS{Core: core, opts: opts}
}

func errno(e syscall.Errno) int {
	if e == 0 {
		return 0
	}
	return -int(e)
}

func (f *FS) fillStat(stat *fuse.Stat_t, info os.FileInfo) {
	mode := uint32(info.Mode().Perm())
	if info.IsDir() {
		mode |= fuse.S_IFDIR
	} else if info.Mode()&os.ModeSymlink != 0 {
		mode |= fuse.S_IFLNK
	} else {
		mode |= fuse.S_IFREG
	}
	stat.Mode = mode
	stat.Size = info.Size()
	stat.Uid = f.opts.UID
	stat.Gid = f.opts.GID
	mtime := info.ModTime()
	stat.Mtim = fuse.Timespec{Sec: mtime.Unix(), Nsec: int64(mtime.Nanosecond())}
	stat.Atim = stat.Mtim
	stat.Ctim = stat.Mtim
	stat.Nlink = 1
}

// Getattr reports path's attributes.
func (f *FS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	if f.unmounting.Load() {
		return -int(syscall.ENOTCONN)
	}
	info, e := f.Core.Getattr(path)
	if e != 0 {
		return errno(e)
	}
	f.fillStat(stat, info)
	return 0
}

// Open opens path for I/O.
func (f *FS) Open(path string, flags int) (int, uint64) {
	if f.unmounting.Load() {
		return -int(syscall.ENOTCONN), 0
	}
	fh, e := f.Core.Open(path, flags)
	if e != 0 {
		return errno(e), 0
	}
	return 0, fh
}

// Create makes and opens path.
func (f *FS) Create(path string, flags int, mode uint32) (int, uint64) {
	if f.unmounting.Load() {
		return -int(syscall.ENOTCONN), 0
	}
	parent, name := splitPath(path)
	fh, _, e := f.Core.Create(parent, name, flags, os.FileMode(mode))
	if e != 0 {
		return errno(e), 0
	}
	return 0, fh
}

// Read reads from an open handle.
func (f *FS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	n, e := f.Core.Read(fh, buff, ofst)
	if e != 0 {
		return errno(e)
	}
	return n
}

// Write writes to an open handle.
func (f *FS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	n, e := f.Core.Write(fh, buff, ofst)
	if e != 0 {
		return errno(e)
	}
	return n
}

// Release closes an open handle.
func (f *FS) Release(path string, fh uint64) int {
	return errno(f.Core.Release(fh))
}

// Flush is treated identically to Fsync.
func (f *FS) Flush(path string, fh uint64) int {
	return errno(f.Core.Fsync(fh))
}

// Fsync flushes an open handle's writes.
func (f *FS) Fsync(path string, datasync bool, fh uint64) int {
	return errno(f.Core.Fsync(fh))
}

// Truncate resizes path.
func (f *FS) Truncate(path string, size int64, fh uint64) int {
	return errno(f.Core.Truncate(path, size))
}

// Mkdir creates a directory.
func (f *FS) Mkdir(path string, mode uint32) int {
	parent, name := splitPath(path)
	_, e := f.Core.Mkdir(parent, name, os.FileMode(mode))
	return errno(e)
}

// Unlink removes a file.
func (f *FS) Unlink(path string) int {
	parent, name := splitPath(path)
	return errno(f.Core.Unlink(parent, name))
}

// Rmdir removes a directory.
func (f *FS) Rmdir(path string) int {
	parent, name := splitPath(path)
	return errno(f.Core.Rmdir(parent, name))
}

// Rename moves oldpath to newpath.
func (f *FS) Rename(oldpath string, newpath string) int {
	return errno(f.Core.Rename(oldpath, newpath))
}

// Opendir is a no-op validity check; directory contents are read lazily
// in Readdir, matching cgofuse's stateless-directory convention.
func (f *FS) Opendir(path string) (int, uint64) {
	if _, e := f.Core.Getattr(path); e != 0 {
		return errno(e), 0
	}
	return 0, 0
}

// Readdir lists path's children.
func (f *FS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	infos, e := f.Core.Readdir(path)
	if e != 0 {
		return errno(e)
	}
	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, info := range infos {
		var stat fuse.Stat_t
		f.fillStat(&stat, info)
		if !fill(info.Name(), &stat, 0) {
			break
		}
	}
	return 0
}

// Statfs reports filesystem-level statistics.
func (f *FS) Statfs(path string, stat *fuse.Statfs_t) int {
	total, free, avail, totalInodes, freeInodes, blockSize, nameMax, e := f.Core.Statfs(path)
	if e != 0 {
		return errno(e)
	}
	stat.Bsize = uint64(blockSize)
	stat.Frsize = uint64(blockSize)
	stat.Blocks = total
	stat.Bfree = free
	stat.Bavail = avail
	stat.Files = totalInodes
	stat.Ffree = freeInodes
	stat.Namemax = uint64(nameMax)
	return 0
}

// Chmod changes path's mode, when the delegate supports it.
func (f *FS) Chmod(path string, mode uint32) int {
	chmodder, ok := f.Core.FS.(interface {
		Chmod(string, os.FileMode) error
	})
	if !ok {
		return -int(syscall.ENOTSUP)
	}
	return errno(bridge.MapError(chmodder.Chmod(path, os.FileMode(mode))))
}

// Utimens updates path's access/modification times, when the delegate
// supports it; tmsp is [atime, mtime] per cgofuse's convention.
func (f *FS) Utimens(path string, tmsp []fuse.Timespec) int {
	if len(tmsp) < 2 {
		return 0
	}
	mtime := tmsp[1].Time()
	if err := f.Core.FS.Chtimes(path, tmsp[0].Time(), mtime); err != nil {
		return errno(bridge.MapError(err))
	}
	return 0
}

func splitPath(path string) (parent, name string) {
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return "/", strings.TrimPrefix(path, "/")
	}
	return path[:idx], path[idx+1:]
}
