package bridge

import (
	"errors"
	"io"
	"os"
	"syscall"
)

// MapError translates an absfs/stdlib error into the FUSE errno a native
// backend should return to the kernel. Both bridge/gofusebridge and
// bridge/cgofusebridge call this for every delegate call so the mapping
// stays in one place instead of duplicated per backend.
func MapError(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, os.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, os.ErrClosed):
		return syscall.EBADF
	case errors.Is(err, os.ErrInvalid):
		return syscall.EINVAL
	case errors.Is(err, io.EOF):
		return 0
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}

	return syscall.EIO
}
