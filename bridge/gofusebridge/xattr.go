package gofusebridge

import "context"
import "syscall"

// Getxattr reads an extended attribute, delegating the buffer-sizing
// convention (nil dest means "report the needed size") to the caller.
func (n *node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	value, errno := n.fs.Core.GetXAttr(n.path, attr)
	if errno != 0 {
		return 0, errno
	}
	if dest == nil {
		return uint32(len(value)), 0
	}
	return uint32(copy(dest, value)), 0
}

// Setxattr writes an extended attribute.
func (n *node) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	return n.fs.Core.SetXAttr(n.path, attr, data, int(flags))
}

// Listxattr returns a null-terminated list of extended attribute names.
func (n *node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	names, errno := n.fs.Core.ListXAttr(n.path)
	if errno != 0 {
		return 0, errno
	}

	var total int
	for _, name := range names {
		total += len(name) + 1
	}
	if dest == nil {
		return uint32(total), 0
	}

	offset := 0
	for _, name := range names {
		copy(dest[offset:], name)
		offset += len(name)
		dest[offset] = 0
		offset++
	}
	return uint32(offset), 0
}

// Removexattr deletes an extended attribute.
func (n *node) Removexattr(ctx context.Context, attr string) syscall.Errno {
	return n.fs.Core.RemoveXAttr(n.path, attr)
}
