package gofusebridge

import (
	"fmt"

	"github.com/absfs/absfs"
	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nio-adapter/nio-fuse/bridge"
)

// NativeMount is the go-fuse-backed implementation of mountlib.NativeMount:
// IsInUse, Unmount, UnmountForced and Release. A mountlib.Handle holds one
// of these, never hanwen/go-fuse types directly.
type NativeMount struct {
	fs     *FS
	server *fuse.Server
}

// Mount builds a gofusebridge.FS around root and mounts it at mountPoint
// with the given raw flag strings.
func Mount(root absfs.FileSystem, mountPoint string, flags []string, opts Options) (*NativeMount, error) {
	core := bridge.NewCore(root, bridge.Options{DefaultPermissions: opts.DefaultPermissions})
	gfs := New(core, opts)

	mountOpts := &gofs.Options{
		MountOptions: fuse.MountOptions{
			FsName:  "niofuse",
			Name:    "niofuse",
			Options: flags,
		},
		AttrTimeout:  &opts.AttrTimeout,
		EntryTimeout: &opts.EntryTimeout,
	}

	server, err := gofs.Mount(mountPoint, gfs.Root(), mountOpts)
	if err != nil {
		return nil, fmt.Errorf("gofusebridge: mount %s: %w", mountPoint, err)
	}

	return &NativeMount{fs: gfs, server: server}, nil
}

// IsInUse reports whether the adapter has open file handles.
func (m *NativeMount) IsInUse() bool { return m.fs.Core.InUse() }

// Unmount requests a graceful kernel-side unmount.
func (m *NativeMount) Unmount() error {
	m.fs.unmounting.Store(true)
	return m.server.Unmount()
}

// UnmountForced is identical to Unmount for go-fuse: it makes the same
// single server.Unmount call; this backend has no separate forced teardown.
func (m *NativeMount) UnmountForced() error {
	m.fs.unmounting.Store(true)
	return m.server.Unmount()
}

// Release frees every resource the native mount and its bridge.Core hold.
func (m *NativeMount) Release() {
	m.fs.Core.Shutdown()
	m.fs.inodes.Clear()
}
