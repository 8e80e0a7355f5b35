//go:build !windows

package mountlib

import "golang.org/x/sys/unix"

// deviceID returns the device id backing path, used by Mount to confirm a
// new filesystem is actually mounted at the resolved mount point (the
// device id changes across a mount boundary on every unix the three
// backends target).
func deviceID(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil
}
