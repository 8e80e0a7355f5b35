// Package gofusebridge is the Linux native-mount glue: it adapts
// bridge.Core's upcall methods to github.com/hanwen/go-fuse/v2's
// fs.InodeEmbedder tree. All locking policy lives in bridge.Core; this package
// only translates between Core's plain-Go-types and go-fuse's wire types
// (fuse.Attr, fuse.EntryOut, fs.DirStream) and owns the pieces that are
// unavoidably go-fuse-specific: inode allocation, attribute/directory
// caching, and POSIX/BSD file locking.
package gofusebridge

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nio-adapter/nio-fuse/bridge"
)

// Options configures a mounted gofusebridge.FS: the fields this backend
// still owns once mount-flag and lifecycle concerns live in
// mountlib/provider.
type Options struct {
	UID, GID           uint32
	AttrTimeout        time.Duration
	EntryTimeout       time.Duration
	AttrCacheTTL       time.Duration
	DirCacheTTL        time.Duration
	MaxCachedInodes    int
	MaxCachedDirs      int
	DefaultPermissions bool
}

// FS is the go-fuse root of a mounted adapter: it owns the bridge.Core
// doing the real work, plus the inode table and caches that are
// go-fuse-specific supplementary state: metadata and directory caching,
// never file content.
type FS struct {
	Core *bridge.Core
	opts Options

	inodes *inodeManager
	locks  *fileLockManager

	unmounting atomic.Bool

	root *node
}

// New constructs a gofusebridge.FS around an already-built bridge.Core.
func New(core *bridge.Core, opts Options) *FS {
	f := &FS{
		Core:   core,
		opts:   opts,
		inodes: newInodeManager(opts.MaxCachedInodes, opts.MaxCachedDirs, opts.AttrCacheTTL, opts.DirCacheTTL),
		locks:  newFileLockManager(),
	}
	f.root = &node{fs: f, path: "/"}
	return f
}

// Root returns the fs.InodeEmbedder to pass to go-fuse's fs.Mount.
func (f *FS) Root() fs.InodeEmbedder { return f.root }

// FuseOptions renders f's caching knobs into go-fuse's fs.Options, the
// structure hanwen/go-fuse's fs.Mount expects.
func (f *FS) FuseOptions() *fs.Options {
	return &fs.Options{
		AttrTimeout:  &f.opts.AttrTimeout,
		EntryTimeout: &f.opts.EntryTimeout,
	}
}

// node implements fs.InodeEmbedder for one path in the mounted tree.
type node struct {
	fs.Inode
	fs   *FS
	path string
}

var (
	_ fs.NodeLookuper     = (*node)(nil)
	_ fs.NodeOpener       = (*node)(nil)
	_ fs.NodeReaddirer    = (*node)(nil)
	_ fs.NodeGetattrer    = (*node)(nil)
	_ fs.NodeCreater      = (*node)(nil)
	_ fs.NodeMkdirer      = (*node)(nil)
	_ fs.NodeUnlinker     = (*node)(nil)
	_ fs.NodeRmdirer      = (*node)(nil)
	_ fs.NodeRenamer      = (*node)(nil)
	_ fs.NodeSetattrer    = (*node)(nil)
	_ fs.NodeFsyncer      = (*node)(nil)
	_ fs.NodeStatfser     = (*node)(nil)
	_ fs.NodeAccesser     = (*node)(nil)
	_ fs.NodeGetxattrer   = (*node)(nil)
	_ fs.NodeSetxattrer   = (*node)(nil)
	_ fs.NodeListxattrer  = (*node)(nil)
	_ fs.NodeRemovexattrer = (*node)(nil)
)

// fileHandle represents one open file, identified by the bridge.Core
// handle id returned from Core.Open/Core.Create.
type fileHandle struct {
	node *node
	fh   uint64
}

var (
	_ fs.FileHandle   = (*fileHandle)(nil)
	_ fs.FileReader   = (*fileHandle)(nil)
	_ fs.FileWriter   = (*fileHandle)(nil)
	_ fs.FileReleaser = (*fileHandle)(nil)
	_ fs.FileFlusher  = (*fileHandle)(nil)
	_ fs.FileGetlker  = (*fileHandle)(nil)
	_ fs.FileSetlker  = (*fileHandle)(nil)
	_ fs.FileSetlkwer = (*fileHandle)(nil)
)

// fillAttr renders an os.FileInfo into go-fuse's fuse.Attr wire struct.
func (n *node) fillAttr(attr *fuse.Attr, info os.FileInfo, ino uint64) {
	attr.Ino = ino
	attr.Size = uint64(info.Size())
	attr.Mode = uint32(info.Mode())
	attr.Mtime = uint64(info.ModTime().Unix())
	attr.Mtimensec = uint32(info.ModTime().Nanosecond())

	if n.fs.opts.UID != 0 {
		attr.Uid = n.fs.opts.UID
	} else {
		attr.Uid = uint32(os.Getuid())
	}
	if n.fs.opts.GID != 0 {
		attr.Gid = n.fs.opts.GID
	} else {
		attr.Gid = uint32(os.Getgid())
	}

	attr.Blocks = (attr.Size + 511) / 512
	attr.Blksize = 4096
}
