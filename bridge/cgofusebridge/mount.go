package cgofusebridge

import (
	"fmt"

	"github.com/absfs/absfs"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/nio-adapter/nio-fuse/bridge"
)

// NativeMount is the cgofuse-backed implementation of the native-library
// contract (mountlib.NativeMount): IsInUse, Unmount, UnmountForced,
// Release. Shared by the darwin FUSE-T provider and the windows WinFsp
// provider, since both speak cgofuse's fuse.Host.
type NativeMount struct {
	core *bridge.Core
	host *fuse.FileSystemHost
}

// Mount builds a cgofusebridge.FS around root and mounts it at mountPoint
// with the given raw flag strings via cgofuse's fuse.Host.Mount.
func Mount(root absfs.FileSystem, mountPoint string, flags []string, opts Options) (*NativeMount, error) {
	core := bridge.NewCore(root, bridge.Options{DefaultPermissions: opts.DefaultPermissions})
	cfs := New(core, opts)

	host := fuse.NewFileSystemHost(cfs)
	host.SetCapReaddirPlus(false)

	if ok := host.Mount(mountPoint, flags); !ok {
		return nil, fmt.Errorf("cgofusebridge: mount %s failed", mountPoint)
	}

	return &NativeMount{core: core, host: host}, nil
}

// IsInUse reports whether the adapter has open file handles.
func (m *NativeMount) IsInUse() bool { return m.core.InUse() }

// Unmount requests a graceful teardown.
func (m *NativeMount) Unmount() error {
	m.core.MarkUnmounting()
	if !m.host.Unmount() {
		return fmt.Errorf("cgofusebridge: unmount refused by backend")
	}
	return nil
}

// UnmountForced is cgofuse's only unmount primitive; there is no separate
// forced path at this layer; callers rely on mountlib.Handle's in-use
// check happening before Unmount is ever invoked.
func (m *NativeMount) UnmountForced() error { return m.Unmount() }

// Release frees every resource the bridge.Core holds.
func (m *NativeMount) Release() { m.core.Shutdown() }
