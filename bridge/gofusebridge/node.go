package gofusebridge

import (
	"context"
	"os"
	"path/filepath"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nio-adapter/nio-fuse/bridge"
)

// Lookup resolves name under n.path. All locking happens inside
// bridge.Core.Lookup; this method only translates the result.
func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	if n.fs.unmounting.Load() {
		return nil, syscall.ENOTCONN
	}
	full := filepath.Join(n.path, name)

	info, errno := n.fs.Core.Lookup(full)
	if errno != 0 {
		return nil, errno
	}

	ino := n.fs.inodes.GetInode(full, info)
	n.fillAttr(&out.Attr, info, ino)

	child := &node{fs: n.fs, path: full}
	mode := uint32(syscall.S_IFREG)
	if info.IsDir() {
		mode = syscall.S_IFDIR
	}
	return n.NewInode(ctx, child, gofs.StableAttr{Mode: mode, Ino: ino}), 0
}

// Getattr reports n's attributes, consulting the attribute cache first.
func (n *node) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if n.fs.unmounting.Load() {
		return syscall.ENOTCONN
	}
	if cached := n.fs.inodes.GetCached(n.path); cached != nil {
		out.Attr = *cached
		return 0
	}

	info, errno := n.fs.Core.Getattr(n.path)
	if errno != 0 {
		return errno
	}
	ino := n.fs.inodes.GetInode(n.path, info)
	n.fillAttr(&out.Attr, info, ino)
	n.fs.inodes.Cache(&out.Attr)
	return 0
}

// Open opens n for I/O, acquiring a bridge.Core handle.
func (n *node) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	if n.fs.unmounting.Load() {
		return nil, 0, syscall.ENOTCONN
	}
	fh, errno := n.fs.Core.Open(n.path, mapOpenFlags(flags))
	if errno != 0 {
		return nil, 0, errno
	}
	return &fileHandle{node: n, fh: fh}, 0, 0
}

// Read reads dest from fh's path at off.
func (fh *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, errno := fh.node.fs.Core.Read(fh.fh, dest, off)
	if errno != 0 {
		return nil, errno
	}
	return fuse.ReadResultData(dest[:n]), 0
}

// Write writes data to fh's path at off.
func (fh *fileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, errno := fh.node.fs.Core.Write(fh.fh, data, off)
	return uint32(n), errno
}

// Release closes fh and drops any file locks it held.
func (fh *fileHandle) Release(ctx context.Context) syscall.Errno {
	fh.node.fs.locks.ReleaseOwner(fh.fh)
	return fh.node.fs.Core.Release(fh.fh)
}

// Flush is the close()-adjacent upcall; delegated to Fsync's semantics.
func (fh *fileHandle) Flush(ctx context.Context) syscall.Errno {
	return fh.node.fs.Core.Fsync(fh.fh)
}

// Readdir lists n's children, consulting the directory cache first.
func (n *node) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	if n.fs.unmounting.Load() {
		return nil, syscall.ENOTCONN
	}
	if entries := n.fs.inodes.GetDirCache(n.path); entries != nil {
		return gofs.NewListDirStream(entries), 0
	}

	infos, errno := n.fs.Core.Readdir(n.path)
	if errno != 0 {
		return nil, errno
	}

	entries := make([]fuse.DirEntry, 0, len(infos))
	for _, info := range infos {
		full := filepath.Join(n.path, info.Name())
		ino := n.fs.inodes.GetInode(full, info)
		mode := uint32(syscall.S_IFREG)
		if info.IsDir() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: info.Name(), Ino: ino, Mode: mode})
	}
	n.fs.inodes.CacheDir(n.path, entries)
	return gofs.NewListDirStream(entries), 0
}

// Create makes and opens name under n.
func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofs.Inode, gofs.FileHandle, uint32, syscall.Errno) {
	if n.fs.unmounting.Load() {
		return nil, nil, 0, syscall.ENOTCONN
	}
	fh, info, errno := n.fs.Core.Create(n.path, name, mapOpenFlags(flags), os.FileMode(mode))
	if errno != 0 {
		return nil, nil, 0, errno
	}
	n.fs.inodes.InvalidateDir(n.path)

	full := filepath.Join(n.path, name)
	ino := n.fs.inodes.GetInode(full, info)
	n.fillAttr(&out.Attr, info, ino)

	child := &node{fs: n.fs, path: full}
	childInode := n.NewInode(ctx, child, gofs.StableAttr{Mode: syscall.S_IFREG, Ino: ino})
	return childInode, &fileHandle{node: child, fh: fh}, 0, 0
}

// Mkdir creates a directory under n.
func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	if n.fs.unmounting.Load() {
		return nil, syscall.ENOTCONN
	}
	info, errno := n.fs.Core.Mkdir(n.path, name, os.FileMode(mode))
	if errno != 0 {
		return nil, errno
	}
	n.fs.inodes.InvalidateDir(n.path)

	full := filepath.Join(n.path, name)
	ino := n.fs.inodes.GetInode(full, info)
	n.fillAttr(&out.Attr, info, ino)

	child := &node{fs: n.fs, path: full}
	return n.NewInode(ctx, child, gofs.StableAttr{Mode: syscall.S_IFDIR, Ino: ino}), 0
}

// Unlink removes name from n.
func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	if n.fs.unmounting.Load() {
		return syscall.ENOTCONN
	}
	errno := n.fs.Core.Unlink(n.path, name)
	if errno == 0 {
		n.fs.inodes.InvalidateDir(n.path)
	}
	return errno
}

// Rmdir removes directory name from n.
func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	if n.fs.unmounting.Load() {
		return syscall.ENOTCONN
	}
	errno := n.fs.Core.Rmdir(n.path, name)
	if errno == 0 {
		n.fs.inodes.InvalidateDir(n.path)
	}
	return errno
}

// Rename moves name (under n) to newName (under newParent).
func (n *node) Rename(ctx context.Context, name string, newParent gofs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if n.fs.unmounting.Load() {
		return syscall.ENOTCONN
	}
	dstNode, ok := newParent.(*node)
	if !ok {
		return syscall.EINVAL
	}
	src := filepath.Join(n.path, name)
	dst := filepath.Join(dstNode.path, newName)

	errno := n.fs.Core.Rename(src, dst)
	if errno == 0 {
		n.fs.inodes.InvalidateDir(n.path)
		n.fs.inodes.InvalidateDir(dstNode.path)
	}
	return errno
}

// Setattr applies size/mode/time changes, then reports the result via Getattr.
func (n *node) Setattr(ctx context.Context, f gofs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if n.fs.unmounting.Load() {
		return syscall.ENOTCONN
	}
	if sz, ok := in.GetSize(); ok {
		if errno := n.fs.Core.Truncate(n.path, int64(sz)); errno != 0 && errno != syscall.ENOTSUP {
			return errno
		}
	}
	if mode, ok := in.GetMode(); ok {
		if chmodder, ok := n.fs.Core.FS.(interface {
			Chmod(string, os.FileMode) error
		}); ok {
			if err := chmodder.Chmod(n.path, os.FileMode(mode)); err != nil {
				return bridge.MapError(err)
			}
		}
	}
	if mtime, ok := in.GetMTime(); ok {
		_ = n.fs.Core.FS.Chtimes(n.path, mtime, mtime)
	}
	return n.Getattr(ctx, f, out)
}

// Fsync flushes fh's pending writes.
func (n *node) Fsync(ctx context.Context, f gofs.FileHandle, flags uint32) syscall.Errno {
	if n.fs.unmounting.Load() {
		return syscall.ENOTCONN
	}
	fh, ok := f.(*fileHandle)
	if !ok {
		return 0
	}
	return n.fs.Core.Fsync(fh.fh)
}

// Access checks the caller's requested mask against n's permissions.
func (n *node) Access(ctx context.Context, mask uint32) syscall.Errno {
	if n.fs.unmounting.Load() {
		return syscall.ENOTCONN
	}
	caller, ok := fuse.FromContext(ctx)
	if !ok {
		return syscall.EACCES
	}
	return n.fs.Core.Access(n.path, caller.Uid, caller.Gid, mask)
}

// Statfs reports filesystem-level statistics for n's mount.
func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	total, free, avail, totalInodes, freeInodes, blockSize, nameMax, errno := n.fs.Core.Statfs(n.path)
	if errno != 0 {
		return errno
	}
	out.Blocks, out.Bfree, out.Bavail = total, free, avail
	out.Files, out.Ffree = totalInodes, freeInodes
	out.Bsize, out.Frsize, out.NameLen = blockSize, blockSize, nameMax
	return 0
}

func mapOpenFlags(flags uint32) int {
	absFlags := 0
	switch {
	case flags&syscall.O_WRONLY != 0:
		absFlags |= os.O_WRONLY
	case flags&syscall.O_RDWR != 0:
		absFlags |= os.O_RDWR
	default:
		absFlags |= os.O_RDONLY
	}
	if flags&syscall.O_APPEND != 0 {
		absFlags |= os.O_APPEND
	}
	if flags&syscall.O_CREAT != 0 {
		absFlags |= os.O_CREATE
	}
	if flags&syscall.O_TRUNC != 0 {
		absFlags |= os.O_TRUNC
	}
	if flags&syscall.O_EXCL != 0 {
		absFlags |= os.O_EXCL
	}
	return absFlags
}
