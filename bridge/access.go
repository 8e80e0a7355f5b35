package bridge

import (
	"os"
	"syscall"
)

// Access mask bits, matching POSIX access(2).
const (
	F_OK = 0 // existence only
	X_OK = 1 // execute
	W_OK = 2 // write
	R_OK = 4 // read
)

// CheckAccess implements the permission logic behind the access() upcall:
// given the file's mode and the calling uid/gid, decide whether mask is
// satisfied. Core.Access calls this after taking a read-on-target lock;
// gofusebridge's node.Access reaches it through Core.Access.
func CheckAccess(info os.FileInfo, callerUID, callerGID uint32, mask uint32) syscall.Errno {
	if mask == F_OK {
		return 0
	}

	perm := info.Mode().Perm()
	var checkPerm os.FileMode
	switch {
	case isOwner(info, callerUID):
		checkPerm = (perm >> 6) & 0x7
	case isGroup(info, callerGID):
		checkPerm = (perm >> 3) & 0x7
	default:
		checkPerm = perm & 0x7
	}

	if mask&R_OK != 0 && checkPerm&0x4 == 0 {
		return syscall.EACCES
	}
	if mask&W_OK != 0 && checkPerm&0x2 == 0 {
		return syscall.EACCES
	}
	if mask&X_OK != 0 && checkPerm&0x1 == 0 {
		return syscall.EACCES
	}
	return 0
}

// isOwner reports whether uid owns the file, where the platform exposes
// ownership via syscall.Stat_t. Filesystems that don't expose ownership
// (pure virtual absfs backends) are treated as owned by every caller,
// which is safe because DefaultPermissions is the recommended mode for
// those delegates.
func isOwner(info os.FileInfo, uid uint32) bool {
	if sys := info.Sys(); sys != nil {
		if stat, ok := sys.(*syscall.Stat_t); ok {
			return stat.Uid == uid
		}
	}
	return true
}

// isGroup reports whether gid matches the file's group.
func isGroup(info os.FileInfo, gid uint32) bool {
	if sys := info.Sys(); sys != nil {
		if stat, ok := sys.(*syscall.Stat_t); ok {
			return stat.Gid == gid
		}
	}
	return false
}
