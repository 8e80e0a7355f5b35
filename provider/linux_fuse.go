//go:build linux

package provider

import (
	"os"
	"time"

	"github.com/absfs/absfs"

	"github.com/nio-adapter/nio-fuse/bridge/gofusebridge"
	"github.com/nio-adapter/nio-fuse/mountlib"
)

var linuxFUSECapabilities = mountlib.NewCapabilitySet(
	mountlib.MountFlags,
	mountlib.MountPointEmptyDir,
	mountlib.ReadOnly,
	mountlib.UnmountForced,
)

var linuxFUSEDefaultFlags = []string{"-oallow_other", "-odefault_permissions"}

func init() {
	register(&Provider{
		Name:         "fuse",
		Priority:     100,
		Capabilities: linuxFUSECapabilities,
		DefaultFlags: linuxFUSEDefaultFlags,
		osMatch:      true,
		probe:        probeFUSEDevice,
		newBuilder:   newLinuxFUSEBuilder,
	})
}

// probeFUSEDevice is this provider's runtime support check: the kernel
// FUSE device must exist.
func probeFUSEDevice() bool {
	_, err := os.Stat("/dev/fuse")
	return err == nil
}

func newLinuxFUSEBuilder(root absfs.FileSystem) mountlib.Builder {
	return mountlib.NewBaseBuilder("fuse", linuxFUSECapabilities, linuxFUSEDefaultFlags, func(params mountlib.MountParams, flags []string) (mountlib.NativeMount, string, error) {
		opts := gofusebridge.Options{
			AttrTimeout:        time.Second,
			EntryTimeout:       time.Second,
			AttrCacheTTL:       time.Second,
			DirCacheTTL:        time.Second,
			MaxCachedInodes:    4096,
			MaxCachedDirs:      1024,
			DefaultPermissions: true,
		}

		nm, err := gofusebridge.Mount(root, params.MountPoint, flags, opts)
		if err != nil {
			return nil, "", err
		}
		return nm, params.MountPoint, nil
	})
}
