//go:build darwin

package provider

import (
	"os"
	"strconv"

	"github.com/absfs/absfs"

	"github.com/nio-adapter/nio-fuse/bridge/cgofusebridge"
	"github.com/nio-adapter/nio-fuse/mountlib"
)

// libfuseTPath is the well-known location the registry probes for
// FUSE-T's shared library.
const libfuseTPath = "/usr/local/lib/libfuse-t.dylib"

var darwinFUSETCapabilities = mountlib.NewCapabilitySet(
	mountlib.MountFlags,
	mountlib.MountPointEmptyDir,
	mountlib.ReadOnly,
	mountlib.VolumeName,
	mountlib.LoopbackHostName,
	mountlib.Port,
	mountlib.UnmountForced,
)

var darwinFUSETDefaultFlags = []string{"-ovolname=niofuse"}

func init() {
	register(&Provider{
		Name:         "fuse-t",
		Priority:     100,
		Capabilities: darwinFUSETCapabilities,
		DefaultFlags: darwinFUSETDefaultFlags,
		osMatch:      true,
		probe:        probeFUSET,
		newBuilder:   newDarwinFUSETBuilder,
	})
}

func probeFUSET() bool {
	_, err := os.Stat(libfuseTPath)
	return err == nil
}

func newDarwinFUSETBuilder(root absfs.FileSystem) mountlib.Builder {
	return mountlib.NewBaseBuilder("fuse-t", darwinFUSETCapabilities, darwinFUSETDefaultFlags, func(params mountlib.MountParams, flags []string) (mountlib.NativeMount, string, error) {
		if params.LoopbackHostName != "" {
			flags = append(flags, "-l"+params.LoopbackHostName)
		}
		if params.Port != 0 {
			flags = append(flags, "-p"+strconv.Itoa(params.Port))
		}

		opts := cgofusebridge.Options{DefaultPermissions: true}
		nm, err := cgofusebridge.Mount(root, params.MountPoint, flags, opts)
		if err != nil {
			return nil, "", err
		}
		return nm, params.MountPoint, nil
	})
}
