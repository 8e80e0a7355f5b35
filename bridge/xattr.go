package bridge

// XAttrFS is an optional capability interface: absfs.FileSystem
// implementations may implement it to support extended attributes. A
// delegate that doesn't implement it causes xattr upcalls to return
// ENOTSUP (mirrors absfs-fusefs's original xattr.go).
//
// Extended attribute namespaces:
//   - user.*     user-defined attributes
//   - system.*   ACLs, capabilities
//   - security.* SELinux and friends
//   - trusted.*  root-only attributes
type XAttrFS interface {
	GetXAttr(path string, name string) ([]byte, error)
	SetXAttr(path string, name string, value []byte, flags int) error
	ListXAttr(path string) ([]string, error)
	RemoveXAttr(path string, name string) error
}

// Extended attribute flags, from <sys/xattr.h>.
const (
	XATTR_CREATE  = 1
	XATTR_REPLACE = 2
)

// StatFSer is an optional capability interface for filesystem-level
// statistics (blocks, inodes, name length). A delegate that doesn't
// implement it gets the virtual-filesystem defaults Core.Statfs returns.
type StatFSer interface {
	StatFS() (total, free, avail, totalInodes, freeInodes uint64, blockSize uint32, nameMax uint32, err error)
}
