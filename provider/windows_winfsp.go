//go:build windows

package provider

import (
	"os"

	"github.com/absfs/absfs"
	"golang.org/x/sys/windows/registry"

	"github.com/nio-adapter/nio-fuse/bridge/cgofusebridge"
	"github.com/nio-adapter/nio-fuse/mountlib"
)

var windowsWinFspCapabilities = mountlib.NewCapabilitySet(
	mountlib.MountAsDriveLetter,
	mountlib.MountWithinExistingParent,
	mountlib.MountToSystemChosenPath,
	mountlib.ReadOnly,
	mountlib.VolumeName,
	mountlib.LoopbackHostName,
	mountlib.UnmountForced,
)

var windowsWinFspDefaultFlags = []string{"-ovolname=niofuse"}

func init() {
	register(&Provider{
		Name:         "winfsp",
		Priority:     100,
		Capabilities: windowsWinFspCapabilities,
		DefaultFlags: windowsWinFspDefaultFlags,
		osMatch:      true,
		probe:        probeWinFsp,
		newBuilder:   newWindowsWinFspBuilder,
	})
}

// probeWinFsp is WinFsp's runtime support check: the launcher service
// registers itself under this registry key when installed.
func probeWinFsp() bool {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\WOW6432Node\WinFsp`, registry.QUERY_VALUE)
	if err == nil {
		k.Close()
		return true
	}
	k, err = registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\WinFsp`, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	k.Close()
	return true
}

func newWindowsWinFspBuilder(root absfs.FileSystem) mountlib.Builder {
	return mountlib.NewBaseBuilder("winfsp", windowsWinFspCapabilities, windowsWinFspDefaultFlags, func(params mountlib.MountParams, flags []string) (mountlib.NativeMount, string, error) {
		mountPoint := params.MountPoint
		if mountPoint == "" {
			mountPoint = chooseSystemDriveLetter()
		}

		if params.LoopbackHostName != "" && params.VolumeName != "" {
			flags = append(flags, "-o", "VolumePrefix=\\"+params.LoopbackHostName+"\\"+params.VolumeName)
		}

		opts := cgofusebridge.Options{DefaultPermissions: true}
		nm, err := cgofusebridge.Mount(root, mountPoint, flags, opts)
		if err != nil {
			return nil, "", err
		}
		return nm, mountPoint, nil
	})
}

// chooseSystemDriveLetter implements MOUNT_TO_SYSTEM_CHOSEN_PATH for
// WinFsp: scan Z: downward for the first unused drive letter, the
// convention WinFsp's own launcher uses when no explicit mount point is
// requested.
func chooseSystemDriveLetter() string {
	for letter := 'Z'; letter >= 'D'; letter-- {
		path := string(letter) + ":\\"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return string(letter) + ":"
		}
	}
	return ""
}
