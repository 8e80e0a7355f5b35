package gofusebridge

import (
	"context"
	"os"
	"path/filepath"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nio-adapter/nio-fuse/bridge"
	"github.com/nio-adapter/nio-fuse/internal/pathlock"
)

// Symlink, Link and Readlink are supplemental operations delegated through
// the optional duck-typed capability interfaces the underlying
// absfs.FileSystem may implement. Symlink and Link are locked the same way
// a create-class upcall is (write on parent, then read on target);
// Readlink takes a read lock on its own path only.

type symlinker interface {
	Symlink(oldname, newname string) error
}
type linker interface {
	Link(oldname, newname string) error
}
type lstater interface {
	Lstat(name string) (os.FileInfo, error)
}

// Symlink creates a symbolic link named name under n, pointing at target.
func (n *node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	if n.fs.unmounting.Load() {
		return nil, syscall.ENOTCONN
	}
	sym, ok := n.fs.Core.FS.(symlinker)
	if !ok {
		return nil, syscall.ENOTSUP
	}
	full := filepath.Join(n.path, name)

	parentScope := n.fs.Core.Locks.LockPathForWriting(pathlock.NewPath(n.path))
	defer parentScope.Release()
	targetScope := n.fs.Core.Locks.LockPathForReading(pathlock.NewPath(full))
	defer targetScope.Release()

	if err := sym.Symlink(target, full); err != nil {
		return nil, bridge.MapError(err)
	}
	n.fs.inodes.InvalidateDir(n.path)

	info, err := lstatOrStat(n.fs.Core.FS, full)
	if err != nil {
		return nil, bridge.MapError(err)
	}
	ino := n.fs.inodes.GetInode(full, info)
	n.fillAttr(&out.Attr, info, ino)

	child := &node{fs: n.fs, path: full}
	return n.NewInode(ctx, child, gofs.StableAttr{Mode: syscall.S_IFLNK, Ino: ino}), 0
}

// Link creates a hard link named name under n, pointing at target.
func (n *node) Link(ctx context.Context, target gofs.InodeEmbedder, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	if n.fs.unmounting.Load() {
		return nil, syscall.ENOTCONN
	}
	targetNode, ok := target.(*node)
	if !ok {
		return nil, syscall.EINVAL
	}
	link, ok := n.fs.Core.FS.(linker)
	if !ok {
		return nil, syscall.ENOTSUP
	}
	full := filepath.Join(n.path, name)

	parentScope := n.fs.Core.Locks.LockPathForWriting(pathlock.NewPath(n.path))
	defer parentScope.Release()
	targetScope := n.fs.Core.Locks.LockPathForReading(pathlock.NewPath(full))
	defer targetScope.Release()

	if err := link.Link(targetNode.path, full); err != nil {
		return nil, bridge.MapError(err)
	}
	n.fs.inodes.InvalidateDir(n.path)

	info, err := n.fs.Core.FS.Stat(full)
	if err != nil {
		return nil, bridge.MapError(err)
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

// Readlink returns the target of the symlink at n.
func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	if n.fs.unmounting.Load() {
		return nil, syscall.ENOTCONN
	}
	reader, ok := n.fs.Core.FS.(interface {
		Readlink(name string) (string, error)
	})
	if !ok {
		return nil, syscall.ENOTSUP
	}

	scope := n.fs.Core.Locks.LockPathForReading(pathlock.NewPath(n.path))
	defer scope.Release()

	target, err := reader.Readlink(n.path)
	if err != nil {
		return nil, bridge.MapError(err)
	}
	return []byte(target), 0
}

func lstatOrStat(fs interface {
	Stat(string) (os.FileInfo, error)
}, path string) (os.FileInfo, error) {
	if l, ok := fs.(lstater); ok {
		return l.Lstat(path)
	}
	return fs.Stat(path)
}

var (
	_ gofs.NodeSymlinker  = (*node)(nil)
	_ gofs.NodeLinker     = (*node)(nil)
	_ gofs.NodeReadlinker = (*node)(nil)
)
